package model

import "time"

// OAuthToken stores platform OAuth credentials per user
type OAuthToken struct {
	ID           int64      `json:"id"                     gorm:"primaryKey;autoIncrement"`
	UserID       string     `json:"user_id"                gorm:"size:128;not null;uniqueIndex:ux_oauth_tokens_user_platform,priority:1"`
	Platform     Platform   `json:"platform"               gorm:"size:32;not null;uniqueIndex:ux_oauth_tokens_user_platform,priority:2"`
	AccessToken  string     `json:"-"                      gorm:"type:text;not null"`
	RefreshToken string     `json:"-"                      gorm:"type:text"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Scopes       string     `json:"scopes"                 gorm:"type:text"`
	SubjectID    *string    `json:"subject_id,omitempty"   gorm:"size:128"`
	DisplayName  *string    `json:"display_name,omitempty" gorm:"size:255"`
	TokenType    *string    `json:"token_type,omitempty"   gorm:"size:32"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (OAuthToken) TableName() string { return "oauth_tokens" }

// Usable reports whether the token can be used to dispatch at now.
// A nil expiry is a non-expiring token.
func (t *OAuthToken) Usable(now time.Time) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	return t.ExpiresAt == nil || t.ExpiresAt.After(now)
}

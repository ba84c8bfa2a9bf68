package model

import "time"

type Platform string

const (
	PlatformLinkedIn  Platform = "linkedin"
	PlatformTwitter   Platform = "twitter"
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
)

// Platforms is the closed set of platforms a task may target.
var Platforms = []Platform{PlatformLinkedIn, PlatformTwitter, PlatformFacebook, PlatformInstagram}

func (p Platform) Valid() bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

type TaskStatus string

const (
	TaskStatusDraft      TaskStatus = "draft"
	TaskStatusScheduled  TaskStatus = "scheduled"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusPublished  TaskStatus = "published"
	TaskStatusFailed     TaskStatus = "failed"
)

// Terminal reports whether the status is never left once entered.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusPublished || s == TaskStatusFailed
}

// Task is a post a user asked to publish at ScheduledFor.
type Task struct {
	ID           int64      `json:"id"            gorm:"primaryKey;autoIncrement"`
	UserID       string     `json:"user_id"       gorm:"size:128;not null"`
	Platform     Platform   `json:"platform"      gorm:"size:32;not null"`
	Content      string     `json:"content"       gorm:"type:text;not null"`
	Status       TaskStatus `json:"status"        gorm:"size:16;not null;index:idx_scheduled_posts_due,priority:1"`
	ScheduledFor time.Time  `json:"scheduled_for" gorm:"not null;index:idx_scheduled_posts_due,priority:2"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	Attempts     int        `json:"attempts"      gorm:"not null;default:0"`
	NextRetryAt  *time.Time `json:"next_retry_at,omitempty"`
	LastError    *string    `json:"last_error,omitempty" gorm:"type:text"`
	ExternalID   *string    `json:"external_id,omitempty" gorm:"size:255"`
	ExternalURL  *string    `json:"external_url,omitempty" gorm:"size:512"`
	ClaimedAt    *time.Time `json:"claimed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"    gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at"    gorm:"autoUpdateTime"`
}

func (Task) TableName() string { return "scheduled_posts" }

// PublishResult is what a platform returns for a live post.
type PublishResult struct {
	ExternalID string `json:"external_id"`
	URL        string `json:"url"`
}

// PlatformProfile is the account an access token authenticates as.
type PlatformProfile struct {
	SubjectID   string `json:"subject_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
}

// CycleReport summarises one dispatch cycle.
type CycleReport struct {
	CycleID   string    `json:"cycle_id"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
	Leader    bool      `json:"leader"`
	Released  int64     `json:"released"`
	Due       int       `json:"due"`
	Published int       `json:"published"`
	Failed    int       `json:"failed"`
	Retried   int       `json:"retried"`
	Skipped   int       `json:"skipped"`
}

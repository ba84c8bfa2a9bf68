package dto

import "time"

// CreateTaskRequest schedules content for later publication.
type CreateTaskRequest struct {
	Platform     string    `json:"platform"      binding:"required"`
	Content      string    `json:"content"       binding:"required"`
	ScheduledFor time.Time `json:"scheduled_for" binding:"required"`
	Draft        bool      `json:"draft"`
}

type PlatformCapability struct {
	Platform    string `json:"platform"`
	Implemented bool   `json:"implemented"`
}

type CredentialStatus struct {
	Platform    string     `json:"platform"`
	Connected   bool       `json:"connected"`
	Usable      bool       `json:"usable"`
	SubjectID   *string    `json:"subject_id,omitempty"`
	DisplayName *string    `json:"display_name,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

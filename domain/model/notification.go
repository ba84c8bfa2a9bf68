package model

import "time"

type NotificationPriority int

const (
	PriorityLow     NotificationPriority = 2
	PriorityDefault NotificationPriority = 3
	PriorityHigh    NotificationPriority = 4
)

type Notification struct {
	Title    string               `json:"title"    bson:"title"`
	Body     string               `json:"body"     bson:"body"`
	Priority NotificationPriority `json:"priority" bson:"priority"`
}

// NotificationRecord is a delivered notification as kept in the audit log.
type NotificationRecord struct {
	Notification `bson:",inline"`
	Delivered    bool      `json:"delivered"  bson:"delivered"`
	CreatedAt    time.Time `json:"created_at" bson:"createdAt"`
}

// TaskEvent is emitted on every committed task transition.
type TaskEvent struct {
	Type        string     `json:"type"`
	TaskID      int64      `json:"task_id"`
	UserID      string     `json:"user_id"`
	Platform    Platform   `json:"platform"`
	Status      TaskStatus `json:"status"`
	ExternalURL *string    `json:"external_url,omitempty"`
	Error       *string    `json:"error,omitempty"`
	At          time.Time  `json:"at"`
}

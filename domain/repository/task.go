package repository

import (
	"context"
	"time"

	"publish-scheduler/domain/model"
)

// ITask is the task store as seen by the dispatch engine.
type ITask interface {
	// FindDue returns scheduled tasks whose scheduled time (and retry time, if
	// any) is at or before now, oldest first, at most limit of them.
	FindDue(ctx context.Context, now time.Time, limit int) ([]*model.Task, error)
	// Claim moves a task from scheduled to processing. It reports false when
	// another worker got there first.
	Claim(ctx context.Context, id int64, now time.Time) (bool, error)
	MarkPublished(ctx context.Context, id int64, publishedAt time.Time, result *model.PublishResult) error
	// The transition methods below take the commit time from the caller's
	// clock; stores never read the wall clock themselves.
	MarkFailed(ctx context.Context, id int64, reason string, failedAt time.Time) error
	ScheduleRetry(ctx context.Context, id int64, attempts int, nextRetryAt time.Time, reason string, now time.Time) error
	// ReleaseStale returns processing tasks claimed before the cutoff to scheduled.
	ReleaseStale(ctx context.Context, claimedBefore, now time.Time) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.Task, error)
	Create(ctx context.Context, task *model.Task) error
}

package repository

import (
	"context"

	"publish-scheduler/domain/model"
)

// INotifier delivers an operator message. It reports whether delivery was
// acknowledged and never returns an error.
type INotifier interface {
	Notify(ctx context.Context, n model.Notification) bool
}

type INotificationLog interface {
	Save(ctx context.Context, record *model.NotificationRecord) error
	Recent(ctx context.Context, limit int64) ([]model.NotificationRecord, error)
}

package notification

import (
	"context"
	"fmt"
	"time"

	"publish-scheduler/domain/model"
	"publish-scheduler/domain/repository"
	"publish-scheduler/infrastructure/logger"

	"github.com/sirupsen/logrus"
)

const httpTimeout = 10 * time.Second

// Log writes notifications to the structured log. It always acknowledges.
type Log struct{}

func (Log) Notify(_ context.Context, n model.Notification) bool {
	entry := logger.GetLogger().WithField("title", n.Title).WithField("priority", n.Priority)
	if n.Priority >= model.PriorityHigh {
		entry.Warn(n.Body)
	} else {
		entry.Info(n.Body)
	}
	return true
}

// Multi fans a notification out to every sink and records the outcome in
// the audit log when one is set.
type Multi struct {
	sinks []repository.INotifier
	log   repository.INotificationLog
	now   func() time.Time
}

func NewMulti(log repository.INotificationLog, sinks ...repository.INotifier) *Multi {
	return &Multi{sinks: sinks, log: log, now: time.Now}
}

func (m *Multi) Add(sink repository.INotifier) {
	if sink != nil {
		m.sinks = append(m.sinks, sink)
	}
}

func (m *Multi) Len() int { return len(m.sinks) }

func (m *Multi) Notify(ctx context.Context, n model.Notification) bool {
	delivered := false
	for _, sink := range m.sinks {
		if m.deliver(ctx, sink, n) {
			delivered = true
		}
	}
	if m.log != nil {
		record := &model.NotificationRecord{Notification: n, Delivered: delivered, CreatedAt: m.now().UTC()}
		if err := m.log.Save(ctx, record); err != nil {
			logger.GetLogger().WithField("error", err).Warn("Failed to record notification")
		}
	}
	return delivered
}

func (m *Multi) deliver(ctx context.Context, sink repository.INotifier, n model.Notification) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.GetLogger().WithFields(logrus.Fields{
				"sink":  fmt.Sprintf("%T", sink),
				"panic": r,
			}).Error("Notification sink panicked")
			ok = false
		}
	}()
	return sink.Notify(ctx, n)
}

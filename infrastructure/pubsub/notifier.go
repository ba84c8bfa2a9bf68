package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"publish-scheduler/domain/model"
	"publish-scheduler/infrastructure/logger"

	"cloud.google.com/go/pubsub"
)

// NewPubSub connects to Google Pub/Sub. An empty project id is an error so
// callers can run without the sink.
func NewPubSub(ctx context.Context, projectID string) (*pubsub.Client, error) {
	if projectID == "" {
		return nil, errors.New("pubsub project id not configured")
	}
	return pubsub.NewClient(ctx, projectID)
}

type event struct {
	Title    string                     `json:"title"`
	Body     string                     `json:"body"`
	Priority model.NotificationPriority `json:"priority"`
	At       time.Time                  `json:"at"`
}

func encode(n model.Notification, at time.Time) ([]byte, error) {
	return json.Marshal(event{Title: n.Title, Body: n.Body, Priority: n.Priority, At: at.UTC()})
}

// Notifier publishes notifications as JSON events on a topic.
type Notifier struct {
	client    *pubsub.Client
	topicName string

	once  sync.Once
	topic *pubsub.Topic
	err   error
}

func NewNotifier(client *pubsub.Client, topicName string) *Notifier {
	return &Notifier{client: client, topicName: topicName}
}

func (n *Notifier) ensureTopic(ctx context.Context) (*pubsub.Topic, error) {
	n.once.Do(func() {
		topic := n.client.Topic(n.topicName)
		exists, err := topic.Exists(ctx)
		if err != nil {
			n.err = err
			return
		}
		if !exists {
			logger.GetLogger().WithField("topic", n.topicName).Info("Topic doesn't exist - creating it")
			if topic, err = n.client.CreateTopic(ctx, n.topicName); err != nil {
				n.err = err
				return
			}
		}
		n.topic = topic
	})
	return n.topic, n.err
}

func (n *Notifier) Notify(ctx context.Context, msg model.Notification) bool {
	lg := logger.GetLogger().WithField("sink", "pubsub")
	if n.client == nil || n.topicName == "" {
		lg.Warn("PubSub client not configured")
		return false
	}
	payload, err := encode(msg, time.Now())
	if err != nil {
		lg.WithField("error", err).Error("Failed to encode event")
		return false
	}
	topic, err := n.ensureTopic(ctx)
	if err != nil {
		lg.WithField("error", err).Error("Failed to resolve topic")
		return false
	}
	serverID, err := topic.Publish(ctx, &pubsub.Message{Data: payload}).Get(ctx)
	if err != nil {
		lg.WithField("error", err).Error("Failed to publish event")
		return false
	}
	lg.WithField("server_id", serverID).Debug("Event published")
	return true
}

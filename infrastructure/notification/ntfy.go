package notification

import (
	"context"
	"net/http"
	"strings"

	"publish-scheduler/domain/model"
	"publish-scheduler/infrastructure/logger"

	"github.com/carlmjohnson/requests"
)

const userAgent = "publish-scheduler"

type ntfyMessage struct {
	Topic    string `json:"topic"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Priority int    `json:"priority"`
}

// Ntfy pushes notifications to an ntfy topic.
type Ntfy struct {
	server string
	topic  string
	token  string
	client *http.Client
}

func NewNtfy(server, topic, token string, client *http.Client) *Ntfy {
	if client == nil {
		client = &http.Client{Timeout: httpTimeout}
	}
	return &Ntfy{server: strings.TrimRight(server, "/"), topic: topic, token: token, client: client}
}

func (n *Ntfy) Notify(ctx context.Context, msg model.Notification) bool {
	b := requests.
		URL(n.server).
		Client(n.client).
		UserAgent(userAgent).
		BodyJSON(ntfyMessage{Topic: n.topic, Title: msg.Title, Message: msg.Body, Priority: int(msg.Priority)})
	if n.token != "" {
		b = b.Bearer(n.token)
	}
	if err := b.Fetch(ctx); err != nil {
		logger.GetLogger().WithField("sink", "ntfy").WithField("error", err).Error("Failed to deliver notification")
		return false
	}
	return true
}

package servicebus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"publish-scheduler/domain/model"
	"publish-scheduler/infrastructure/logger"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
)

// NewServiceBus connects to a namespace such as "mybus" or
// "mybus.servicebus.windows.net" with the default Azure credential chain.
func NewServiceBus(ctx context.Context, namespace string) (*azservicebus.Client, error) {
	if namespace == "" {
		return nil, errors.New("service bus namespace not configured")
	}
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}
	return azservicebus.NewClient(fullyQualified(namespace), cred, nil)
}

func fullyQualified(namespace string) string {
	if strings.Contains(namespace, ".") {
		return namespace
	}
	return namespace + ".servicebus.windows.net"
}

type event struct {
	Title    string                     `json:"title"`
	Body     string                     `json:"body"`
	Priority model.NotificationPriority `json:"priority"`
	At       time.Time                  `json:"at"`
}

// Notifier sends notifications as JSON messages to a queue.
type Notifier struct {
	client *azservicebus.Client
	queue  string
}

func NewNotifier(client *azservicebus.Client, queue string) *Notifier {
	return &Notifier{client: client, queue: queue}
}

func (n *Notifier) message(msg model.Notification, at time.Time) (*azservicebus.Message, error) {
	body, err := json.Marshal(event{Title: msg.Title, Body: msg.Body, Priority: msg.Priority, At: at.UTC()})
	if err != nil {
		return nil, err
	}
	contentType := "application/json"
	subject := msg.Title
	return &azservicebus.Message{
		Body:                  body,
		ContentType:           &contentType,
		Subject:               &subject,
		ApplicationProperties: map[string]interface{}{"priority": int(msg.Priority)},
	}, nil
}

func (n *Notifier) Notify(ctx context.Context, msg model.Notification) bool {
	lg := logger.GetLogger().WithField("sink", "servicebus")
	if n.client == nil || n.queue == "" {
		lg.Warn("Service Bus client not configured")
		return false
	}
	sbMessage, err := n.message(msg, time.Now())
	if err != nil {
		lg.WithField("error", err).Error("Failed to encode event")
		return false
	}
	sender, err := n.client.NewSender(n.queue, nil)
	if err != nil {
		lg.WithField("error", err).Error("Error while making new sender service bus.")
		return false
	}
	defer func() {
		if err := sender.Close(context.WithoutCancel(ctx)); err != nil {
			lg.WithField("error", err).Error("Error while closing sender.")
		}
	}()
	if err := sender.SendMessage(ctx, sbMessage, nil); err != nil {
		lg.WithField("error", err).Error("Error while sending message.")
		return false
	}
	return true
}

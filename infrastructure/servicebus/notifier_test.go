package servicebus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"publish-scheduler/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFullyQualified(t *testing.T) {
	assert.Equal(t, "ops.servicebus.windows.net", fullyQualified("ops"))
	assert.Equal(t, "ops.servicebus.windows.net", fullyQualified("ops.servicebus.windows.net"))
}

func TestNewServiceBus_RequiresNamespace(t *testing.T) {
	client, err := NewServiceBus(context.Background(), "")

	assert.Nil(t, client)
	assert.Error(t, err)
}

func TestNotifier_WithoutClient(t *testing.T) {
	assert.False(t, NewNotifier(nil, "publish-events").Notify(context.Background(), model.Notification{Title: "t"}))
}

func TestNotifier_Message(t *testing.T) {
	n := NewNotifier(nil, "publish-events")
	at := time.Date(2026, 3, 1, 2, 30, 0, 0, time.UTC)

	msg, err := n.message(model.Notification{Title: "Publish failed", Body: "linkedin post 3", Priority: model.PriorityHigh}, at)

	require.NoError(t, err)
	require.NotNil(t, msg.ContentType)
	assert.Equal(t, "application/json", *msg.ContentType)
	assert.Equal(t, "Publish failed", *msg.Subject)
	assert.Equal(t, 4, msg.ApplicationProperties["priority"])
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	assert.Equal(t, "linkedin post 3", got["body"])
	assert.Equal(t, "2026-03-01T02:30:00Z", got["at"])
}

package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"publish-scheduler/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPubSub_RequiresProject(t *testing.T) {
	client, err := NewPubSub(context.Background(), "")

	assert.Nil(t, client)
	assert.Error(t, err)
}

func TestNotifier_WithoutClient(t *testing.T) {
	n := NewNotifier(nil, "publish-events")

	assert.False(t, n.Notify(context.Background(), model.Notification{Title: "t", Body: "b"}))
}

func TestEncode(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.FixedZone("WIB", 7*3600))

	b, err := encode(model.Notification{Title: "Publish failed", Body: "linkedin post 3", Priority: model.PriorityHigh}, at)

	require.NoError(t, err)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "Publish failed", got["title"])
	assert.Equal(t, "linkedin post 3", got["body"])
	assert.Equal(t, float64(4), got["priority"])
	assert.Equal(t, "2026-03-01T02:30:00Z", got["at"])
}

package realtime

import (
	"encoding/json"
	"net/http"
	"sync"

	"publish-scheduler/domain/model"

	"github.com/gin-gonic/gin"
)

const eventTaskStatus = "task_status"

// Hub fans task status events out to each user's open SSE streams.
type Hub struct {
	mu    sync.RWMutex
	users map[string]map[chan model.TaskEvent]struct{}
}

func NewTaskHub() *Hub {
	return &Hub{users: make(map[string]map[chan model.TaskEvent]struct{})}
}

// Serve streams events for the authenticated user (user_id set by middleware).
func (h *Hub) Serve(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.Status(http.StatusUnauthorized)
		return
	}
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ch := make(chan model.TaskEvent, 8)
	h.addSubscriber(userID, ch)
	defer h.removeSubscriber(userID, ch)

	_, _ = c.Writer.Write([]byte(":ok\n\n"))
	c.Writer.Flush()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case evt := <-ch:
			data, _ := json.Marshal(evt)
			_, _ = c.Writer.Write([]byte("event: " + eventTaskStatus + "\ndata: "))
			_, _ = c.Writer.Write(data)
			_, _ = c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}

// Subscribers is the number of open streams for a user.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

func (h *Hub) addSubscriber(userID string, ch chan model.TaskEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.users[userID] == nil {
		h.users[userID] = make(map[chan model.TaskEvent]struct{})
	}
	h.users[userID][ch] = struct{}{}
}

func (h *Hub) removeSubscriber(userID string, ch chan model.TaskEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs := h.users[userID]; subs != nil {
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(h.users, userID)
		}
	}
}

// BroadcastTask sends the task's current state to its owner's streams.
// Slow subscribers miss events rather than block the caller.
func (h *Hub) BroadcastTask(task *model.Task) {
	if task == nil {
		return
	}
	evt := model.TaskEvent{
		Type:        eventTaskStatus,
		TaskID:      task.ID,
		UserID:      task.UserID,
		Platform:    task.Platform,
		Status:      task.Status,
		ExternalURL: task.ExternalURL,
		Error:       task.LastError,
		At:          task.UpdatedAt,
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.users[task.UserID] {
		select {
		case ch <- evt:
		default:
		}
	}
}

package notification

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"publish-scheduler/domain/model"
	"publish-scheduler/infrastructure/logger"

	"github.com/carlmjohnson/requests"
	"github.com/google/go-querystring/query"
)

type telegramMessage struct {
	ChatID              string `url:"chat_id"`
	Text                string `url:"text"`
	DisableNotification bool   `url:"disable_notification,omitempty"`
}

// Telegram sends notifications through the Bot API sendMessage call.
type Telegram struct {
	apiURL   string
	botToken string
	chatID   string
	client   *http.Client
}

func NewTelegram(apiURL, botToken, chatID string, client *http.Client) *Telegram {
	if client == nil {
		client = &http.Client{Timeout: httpTimeout}
	}
	return &Telegram{apiURL: strings.TrimRight(apiURL, "/"), botToken: botToken, chatID: chatID, client: client}
}

func (t *Telegram) Notify(ctx context.Context, msg model.Notification) bool {
	lg := logger.GetLogger().WithField("sink", "telegram")
	params, err := query.Values(telegramMessage{
		ChatID:              t.chatID,
		Text:                fmt.Sprintf("%s\n\n%s", msg.Title, msg.Body),
		DisableNotification: msg.Priority <= model.PriorityLow,
	})
	if err != nil {
		lg.WithField("error", err).Error("Failed to encode telegram message")
		return false
	}
	var resp struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	err = requests.
		URL(t.apiURL + "/bot" + t.botToken + "/sendMessage").
		Client(t.client).
		UserAgent(userAgent).
		Method(http.MethodPost).
		Params(params).
		ToJSON(&resp).
		Fetch(ctx)
	if err != nil {
		lg.WithField("error", err).Error("Failed to deliver notification")
		return false
	}
	if !resp.OK {
		lg.WithField("description", resp.Description).Error("Telegram rejected notification")
		return false
	}
	return true
}

package notify

import (
	"time"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"
)

// Notifier is the fire-and-forget operator channel. The core never depends
// on delivery success; failures are logged and swallowed.
type Notifier interface {
	Send(message string)
}

// TelegramNotifier delivers messages through the Telegram bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	http     *resty.Client
}

func NewTelegramNotifier(cfg Config) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: cfg.TelegramBotToken,
		chatID:   cfg.TelegramChatID,
		http: resty.New().
			SetBaseURL("https://api.telegram.org").
			SetTimeout(3 * time.Second),
	}
}

func (n *TelegramNotifier) Send(message string) {
	if n.botToken == "" || n.chatID == "" {
		logger.Debug("telegram not configured, dropping notification")
		return
	}

	resp, err := n.http.R().
		SetBody(map[string]string{
			"chat_id": n.chatID,
			"text":    message,
		}).
		Post("/bot" + n.botToken + "/sendMessage")
	if err != nil {
		logger.WithError(err).Warn("failed to send telegram notification")
		return
	}
	if resp.IsError() {
		logger.WithField("status", resp.StatusCode()).Warn("telegram rejected notification")
	}
}

// NopNotifier discards everything; used when no channel is configured.
type NopNotifier struct{}

func (NopNotifier) Send(string) {}

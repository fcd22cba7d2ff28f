package notifier

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"signaldesk/internal/config"
	"signaldesk/internal/logger"
	"signaldesk/internal/pkg/circuit"
)

const (
	telegramTimeout  = 15 * time.Second
	breakerThreshold = 3
	breakerCooldown  = 2 * time.Minute
)

// Telegram 把写操作结果推送到指定群/频道，外层有熔断保护。
type Telegram struct {
	api     *tgbotapi.BotAPI
	chatID  int64
	channel string
	breaker *circuit.Breaker
}

// NewTelegram 按配置构造；未启用时返回 Noop。
func NewTelegram(cfg config.TelegramConfig) (TextNotifier, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}
	t, err := newTelegram(cfg.BotToken, cfg.ChatID, tgbotapi.APIEndpoint, &http.Client{Timeout: telegramTimeout})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func newTelegram(token, chat, endpoint string, client tgbotapi.HTTPClient) (*Telegram, error) {
	token = strings.TrimSpace(token)
	chat = strings.TrimSpace(chat)
	if token == "" || chat == "" {
		return nil, errors.New("telegram bot_token and chat_id are required")
	}
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	t := &Telegram{api: api, breaker: circuit.New("telegram", breakerThreshold, breakerCooldown)}
	if strings.HasPrefix(chat, "@") {
		t.channel = chat
	} else {
		id, err := strconv.ParseInt(chat, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("telegram chat_id %q: %w", chat, err)
		}
		t.chatID = id
	}
	logger.Infof("telegram notifier ready: @%s", api.Self.UserName)
	return t, nil
}

// SendText 熔断打开时直接返回 circuit.ErrOpen。
func (t *Telegram) SendText(text string) error {
	return t.breaker.Do(func() error {
		var msg tgbotapi.MessageConfig
		if t.channel != "" {
			msg = tgbotapi.NewMessageToChannel(t.channel, text)
		} else {
			msg = tgbotapi.NewMessage(t.chatID, text)
		}
		msg.ParseMode = tgbotapi.ModeMarkdown
		msg.DisableWebPagePreview = true
		if _, err := t.api.Send(msg); err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
		return nil
	})
}

// Package telegram delivers player notifications through the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/okian/matchsync/internal/domain/model"
	"github.com/okian/matchsync/pkg/logger"
)

const (
	defaultMaxRetries     = 3
	defaultRetryDelayBase = time.Second
	defaultClientTimeout  = 15 * time.Second
)

// Notifier sends MarkdownV2 messages to a single chat.
type Notifier struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	endpoint       string
	client         *http.Client
	maxRetries     int
	retryDelayBase time.Duration
	log            logger.Logger
}

// New connects to the Bot API and checks the token.
func New(botToken, chatID string, opts ...Option) (*Notifier, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(chatID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	n := &Notifier{
		chatID:         id,
		endpoint:       tgbotapi.APIEndpoint,
		client:         &http.Client{Timeout: defaultClientTimeout},
		maxRetries:     defaultMaxRetries,
		retryDelayBase: defaultRetryDelayBase,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.log == nil {
		n.log = logger.Get().Named("telegram")
	}

	bot, err := tgbotapi.NewBotAPIWithClient(botToken, n.endpoint, n.client)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	n.bot = bot
	return n, nil
}

// Notify sends n, retrying with a linear delay.
func (n *Notifier) Notify(ctx context.Context, note model.Notification) error {
	return n.sendMarkdownV2(ctx, FormatMessage(note))
}

func (n *Notifier) sendMarkdownV2(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	var lastErr error
	for i := 0; i < n.maxRetries; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("send aborted: %w", err)
		}
		_, err := n.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		n.log.Debug(ctx, "telegram send failed",
			logger.Int("attempt", i+1),
			logger.Error(err),
		)
		if i == n.maxRetries-1 {
			break
		}
		select {
		case <-time.After(n.retryDelayBase * time.Duration(i+1)):
		case <-ctx.Done():
			return fmt.Errorf("send aborted: %w", ctx.Err())
		}
	}
	return fmt.Errorf("failed after %d retries: %w", n.maxRetries, lastErr)
}

var kindLabels = map[string]string{
	"goal":        "⚽ *Goal*",
	"own_goal":    "🙈 *Own goal*",
	"assist":      "🅰️ *Assist*",
	"yellow_card": "🟨 *Yellow card*",
	"red_card":    "🟥 *Red card*",
	"sub_in":      "🔼 *Subbed on*",
	"sub_out":     "🔽 *Subbed off*",
}

// FormatMessage renders a notification as Telegram MarkdownV2.
func FormatMessage(n model.Notification) string {
	label, ok := kindLabels[n.EventType]
	if !ok {
		label = "📣 *" + escapeMarkdownV2(n.EventType) + "*"
	}

	var b strings.Builder
	b.WriteString(label)
	if n.PlayerName != "" {
		b.WriteString(": ")
		b.WriteString(escapeMarkdownV2(n.PlayerName))
	}
	if n.MatchLabel != "" {
		b.WriteString("\n")
		b.WriteString(escapeMarkdownV2(n.MatchLabel))
	}
	return b.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}

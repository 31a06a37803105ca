package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	BotToken   string
	ChatID     string
	APIBase    string
	MaxRetries uint64
	Client     *http.Client
	logger     *zap.Logger
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, chatID, proxyURL string, logger *zap.Logger) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &TelegramNotifier{
		BotToken:   botToken,
		ChatID:     chatID,
		APIBase:    telegramAPIBase,
		MaxRetries: 3,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		logger: logger.With(zap.String("component", "telegram")),
	}
}

// Send posts title and text as one HTML message, retrying transient failures.
func (t *TelegramNotifier) Send(ctx context.Context, title, text string) error {
	msg := text
	if title != "" {
		msg = "**" + title + "**\n\n" + text
	}
	body := markdownToHTML(msg)
	err := backoff.RetryNotify(func() error {
		return t.sendOnce(ctx, body)
	}, retryPolicy(ctx, t.MaxRetries), func(err error, wait time.Duration) {
		t.logger.Warn("telegram send failed, retrying", zap.Duration("wait", wait), zap.Error(err))
	})
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	return nil
}

// Reply sends text without a title, used for command responses.
func (t *TelegramNotifier) Reply(ctx context.Context, text string) error {
	return t.Send(ctx, "", text)
}

func (t *TelegramNotifier) sendOnce(ctx context.Context, text string) error {
	apiURL := fmt.Sprintf("%s/bot%s/sendMessage", t.APIBase, t.BotToken)
	payload := map[string]string{
		"chat_id":    t.ChatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("marshal payload: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		statusErr := fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode, string(respBody))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return statusErr
		}
		return backoff.Permanent(statusErr)
	}
	return nil
}

// markdownToHTML escapes text and turns **bold** spans into <b> tags.
func markdownToHTML(s string) string {
	parts := strings.Split(html.EscapeString(s), "**")
	if len(parts)%2 == 0 {
		// Unbalanced marker: leave the last one literal.
		last := len(parts) - 1
		parts[last-1] += "**" + parts[last]
		parts = parts[:last]
	}
	var b strings.Builder
	for i, p := range parts {
		if i%2 == 1 {
			b.WriteString("<b>" + p + "</b>")
			continue
		}
		b.WriteString(p)
	}
	return b.String()
}

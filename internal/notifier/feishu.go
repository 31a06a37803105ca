package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// FeishuNotifier posts interactive cards to a Feishu custom-bot webhook.
type FeishuNotifier struct {
	Webhook    string
	Note       string
	MaxRetries uint64
	Client     *http.Client
	logger     *zap.Logger
}

func NewFeishuNotifier(webhook string, logger *zap.Logger) *FeishuNotifier {
	return &FeishuNotifier{
		Webhook:    webhook,
		Note:       "*自动风控·非投资建议*",
		MaxRetries: 3,
		Client:     &http.Client{Timeout: 15 * time.Second},
		logger:     logger.With(zap.String("component", "feishu")),
	}
}

type larkText struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

type larkElement struct {
	Tag      string     `json:"tag"`
	Text     *larkText  `json:"text,omitempty"`
	Elements []larkText `json:"elements,omitempty"`
}

type larkCard struct {
	MsgType string `json:"msg_type"`
	Card    struct {
		Config struct {
			WideScreenMode bool `json:"wide_screen_mode"`
		} `json:"config"`
		Header struct {
			Title larkText `json:"title"`
		} `json:"header"`
		Elements []larkElement `json:"elements"`
	} `json:"card"`
}

func (f *FeishuNotifier) card(title, md string) larkCard {
	var c larkCard
	c.MsgType = "interactive"
	c.Card.Config.WideScreenMode = true
	c.Card.Header.Title = larkText{Tag: "plain_text", Content: title}
	c.Card.Elements = []larkElement{
		{Tag: "div", Text: &larkText{Tag: "lark_md", Content: md}},
		{Tag: "hr"},
		{Tag: "note", Elements: []larkText{{Tag: "lark_md", Content: f.Note}}},
	}
	return c
}

// Send posts one card. Transient HTTP failures are retried.
func (f *FeishuNotifier) Send(ctx context.Context, title, text string) error {
	if title == "" {
		title = "持仓风控提醒"
	}
	body, err := json.Marshal(f.card(title, text))
	if err != nil {
		return fmt.Errorf("feishu: marshal card: %w", err)
	}
	err = backoff.RetryNotify(func() error {
		return f.post(ctx, body)
	}, retryPolicy(ctx, f.MaxRetries), func(err error, wait time.Duration) {
		f.logger.Warn("feishu send failed, retrying", zap.Duration("wait", wait), zap.Error(err))
	})
	if err != nil {
		return fmt.Errorf("feishu: %w", err)
	}
	return nil
}

func (f *FeishuNotifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.Webhook, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	resp, err := f.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		statusErr := fmt.Errorf("status %d, body: %s", resp.StatusCode, string(respBody))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return statusErr
		}
		return backoff.Permanent(statusErr)
	}
	// The webhook reports application errors in a 200 body.
	var result struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if json.Unmarshal(respBody, &result) == nil && result.Code != 0 {
		return backoff.Permanent(fmt.Errorf("code %d: %s", result.Code, result.Msg))
	}
	return nil
}

package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"RiskSentinel/internal/model"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// restClient is a small JSON GET client shared by the public REST adapters.
type restClient struct {
	baseURL    string
	http       *http.Client
	logger     *zap.Logger
	maxRetries uint64
	newBackOff func() backoff.BackOff
}

func newRESTClient(baseURL, proxyURL string, logger *zap.Logger) *restClient {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &restClient{
		baseURL: baseURL,
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		logger:     logger,
		maxRetries: 3,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 800 * time.Millisecond
			b.Multiplier = 1.8
			b.MaxElapsedTime = 20 * time.Second
			return b
		},
	}
}

// getJSON decodes the body of a GET into out. 5xx, 429 and transport errors are
// retried with exponential backoff; other 4xx and decode errors are not.
func (c *restClient) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			statusErr := fmt.Errorf("status %d, body: %s", resp.StatusCode, truncate(body, 200))
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}
		if err := json.Unmarshal(body, out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode: %w", err))
		}
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)
	err := backoff.RetryNotify(op, b, func(err error, wait time.Duration) {
		c.logger.Warn("request failed, retrying",
			zap.String("url", c.baseURL+path), zap.Duration("wait", wait), zap.Error(err))
	})
	if err != nil {
		return fmt.Errorf("GET %s: %v: %w", path, err, model.ErrDataUnavailable)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

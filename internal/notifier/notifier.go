package notifier

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Notifier delivers a titled markdown message to an operator channel.
type Notifier interface {
	Send(ctx context.Context, title, text string) error
}

// Multi fans a message out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, title, text string) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, title, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop drops every message.
type Nop struct{}

func (Nop) Send(context.Context, string, string) error { return nil }

// retryPolicy is shared by the webhook notifiers: 0.8s initial, x1.8, at most
// maxRetries retries.
func retryPolicy(ctx context.Context, maxRetries uint64) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 800 * time.Millisecond
	b.Multiplier = 1.8
	b.MaxElapsedTime = time.Minute
	return backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx)
}

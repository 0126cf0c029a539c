package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Breaker trips after repeated upload failures so callers fail fast while the
// store is down.
type Breaker struct {
	next Store
	cb   *gobreaker.CircuitBreaker
}

func NewBreaker(next Store, logger *zap.Logger) *Breaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "object-storage",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		// A caller giving up says nothing about the store's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("storage: circuit state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &Breaker{next: next, cb: cb}
}

func (b *Breaker) Upload(ctx context.Context, r io.Reader, size int64, key, contentType string) (*url.URL, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Upload(ctx, r, size, key, contentType)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrUnavailable
		}
		return nil, err
	}
	return out.(*url.URL), nil
}

// Package inflight coalesces work across instances with a Redis marker.
// The first caller to Acquire a key owns the work; others Wait until the
// owner releases the key or its TTL lapses.
package inflight

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yoola/core/internal/pkg/redis"
)

const (
	DefaultTTL          = 2 * time.Minute
	DefaultPollInterval = 500 * time.Millisecond

	keyPrefix     = "yoola:inflight:"
	channelPrefix = "yoola:inflight:done:"
)

type Marker struct {
	client       *redis.Client
	owner        string
	ttl          time.Duration
	pollInterval time.Duration
}

type Option func(*Marker)

// WithTTL bounds how long a crashed owner can block waiters.
func WithTTL(ttl time.Duration) Option {
	return func(m *Marker) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(m *Marker) {
		if d > 0 {
			m.pollInterval = d
		}
	}
}

func New(client *redis.Client, opts ...Option) *Marker {
	m := &Marker{
		client:       client,
		owner:        uuid.NewString(),
		ttl:          DefaultTTL,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Marker) Acquire(ctx context.Context, key string) (bool, error) {
	return m.client.SetNX(ctx, keyPrefix+key, m.owner, m.ttl)
}

// Wait blocks until key is no longer held. Release notifications arrive over
// pub/sub; polling covers owners that die without releasing.
func (m *Marker) Wait(ctx context.Context, key string) error {
	sub := m.client.Subscribe(ctx, channelPrefix+key)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return contextOr(ctx, err)
	}
	done := sub.Channel()

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		held, err := m.client.Exists(ctx, keyPrefix+key)
		if err != nil {
			return contextOr(ctx, err)
		}
		if !held {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
		case <-ticker.C:
		}
	}
}

// Release drops the marker if this instance still owns it and wakes waiters.
func (m *Marker) Release(ctx context.Context, key string) error {
	deleted, err := m.client.CompareAndDelete(ctx, keyPrefix+key, m.owner)
	if err != nil {
		return err
	}
	if !deleted {
		return nil
	}
	return m.client.Publish(ctx, channelPrefix+key, "done")
}

// contextOr prefers the context error over the network error it caused.
func contextOr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

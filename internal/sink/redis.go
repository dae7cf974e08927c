// internal/sink/redis.go
package sink

import (
	"context"
	"errors"
	"fmt"

	backend "github.com/redis/go-redis/v9"
)

// Redis publishes each body on a pub/sub channel.
type Redis struct {
	client  *backend.Client
	channel string
	owned   bool
}

// NewRedis dials addr lazily; the first Emit opens the connection.
func NewRedis(addr, channel string) (*Redis, error) {
	if addr == "" {
		return nil, errors.New("sink: redis addr required")
	}
	r, err := NewRedisFromClient(backend.NewClient(&backend.Options{Addr: addr}), channel)
	if err != nil {
		return nil, err
	}
	r.owned = true
	return r, nil
}

// NewRedisFromClient wraps an existing client. Close leaves it open.
func NewRedisFromClient(client *backend.Client, channel string) (*Redis, error) {
	if client == nil {
		return nil, errors.New("sink: redis client required")
	}
	if channel == "" {
		return nil, errors.New("sink: redis channel required")
	}
	return &Redis{client: client, channel: channel}, nil
}

func (r *Redis) Emit(ctx context.Context, body []byte) error {
	if err := r.client.Publish(ctx, r.channel, body).Err(); err != nil {
		return fmt.Errorf("sink: redis publish %q: %w", r.channel, err)
	}
	return nil
}

func (r *Redis) Close() error {
	if !r.owned {
		return nil
	}
	return r.client.Close()
}

package cancel

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	sharederrors "github.com/khanhnv2901/seca-pqc/internal/shared/errors"
)

const (
	// DefaultKeyPrefix namespaces cancellation flags.
	DefaultKeyPrefix = "seca-pqc:cancel:"
	// DefaultTTL expires flags that were never cleared.
	DefaultTTL = 24 * time.Hour
)

// RedisRegistry shares cancellation flags between server instances.
type RedisRegistry struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Options configures a RedisRegistry.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// NewRedisRegistry builds a registry. The connection is opened lazily.
func NewRedisRegistry(opts Options) *RedisRegistry {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return newRedisRegistry(client, opts.Prefix, opts.TTL)
}

func newRedisRegistry(client *redis.Client, prefix string, ttl time.Duration) *RedisRegistry {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisRegistry{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisRegistry) key(requestID string) string {
	return r.prefix + requestID
}

// Cancel sets the flag for requestID.
func (r *RedisRegistry) Cancel(ctx context.Context, requestID string) error {
	if requestID == "" {
		return sharederrors.ErrEmptyRequestID
	}
	if err := r.client.Set(ctx, r.key(requestID), "1", r.ttl).Err(); err != nil {
		return fmt.Errorf("set cancel flag: %w", err)
	}
	return nil
}

// IsCancelled reports whether the flag for requestID is set.
func (r *RedisRegistry) IsCancelled(ctx context.Context, requestID string) (bool, error) {
	if requestID == "" {
		return false, nil
	}
	n, err := r.client.Exists(ctx, r.key(requestID)).Result()
	if err != nil {
		return false, fmt.Errorf("read cancel flag: %w", err)
	}
	return n > 0, nil
}

// Clear removes the flag for requestID.
func (r *RedisRegistry) Clear(ctx context.Context, requestID string) error {
	if requestID == "" {
		return nil
	}
	if err := r.client.Del(ctx, r.key(requestID)).Err(); err != nil {
		return fmt.Errorf("clear cancel flag: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (r *RedisRegistry) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the client.
func (r *RedisRegistry) Close() error {
	return r.client.Close()
}

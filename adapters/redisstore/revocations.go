// Package redisstore keeps revoked credential ids in Redis so every
// instance behind a load balancer rejects a logged out session.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	auth "github.com/goliatone/go-classroom-auth"
)

const defaultPrefix = "auth:revoked:"

// RevocationStore is a Redis backed auth.RevocationStore. Entries expire
// together with the credential they revoke.
type RevocationStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

var _ auth.RevocationStore = (*RevocationStore)(nil)

// Option customizes the store.
type Option func(*RevocationStore)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *RevocationStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithClock overrides the time source used to compute TTLs.
func WithClock(now func() time.Time) Option {
	return func(s *RevocationStore) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a revocation store on client.
func New(client redis.UniversalClient, opts ...Option) *RevocationStore {
	s := &RevocationStore{
		client: client,
		prefix: defaultPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Connect parses a redis:// url, pings the server and returns the client.
func Connect(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Revoke marks tokenID revoked until the given time. Already expired
// credentials are skipped.
func (s *RevocationStore) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	if tokenID == "" {
		return errors.New("token id cannot be empty")
	}

	ttl := until.Sub(s.now())
	if ttl <= 0 {
		return nil
	}

	return s.client.Set(ctx, s.prefix+tokenID, until.Unix(), ttl).Err()
}

// IsRevoked reports whether tokenID was revoked. Lookup failures are
// returned so the guard can refuse the request.
func (s *RevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}

	n, err := s.client.Exists(ctx, s.prefix+tokenID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

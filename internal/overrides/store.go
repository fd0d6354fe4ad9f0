// Package overrides persists user mute decisions in Redis so that a
// cookie flagged as risky can be suppressed from future reports until
// the user unmutes it.
package overrides

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Override records a user's decision to mute findings for one cookie
// on one domain.
type Override struct {
	CookieName   string    `json:"cookie_name"`
	CookieDomain string    `json:"cookie_domain"`
	Reason       string    `json:"reason,omitempty"`
	MutedAt      time.Time `json:"muted_at"`
}

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore connects to Redis and returns a Store. A ttl of zero keeps
// overrides until explicitly removed.
func NewStore(addr string, pword string, db int, ttl time.Duration) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: pword,
		DB:       db,
	})

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Connected to Redis: %s", addr)

	return &Store{rdb: rdb, ttl: ttl}, nil
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) GetClient() *redis.Client {
	return s.rdb
}

package overrides

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func overrideKey(domain, name string) string {
	return fmt.Sprintf("override:%s:%s", domain, name)
}

func activeSetKey(domain string) string {
	return fmt.Sprintf("overrides:active:%s", domain)
}

// Mute stores an override for the cookie and adds it to the domain's
// active set.
func (s *Store) Mute(ctx context.Context, override Override) error {
	if override.MutedAt.IsZero() {
		override.MutedAt = time.Now().UTC()
	}

	data, err := json.Marshal(override)
	if err != nil {
		return fmt.Errorf("failed to marshal override: %w", err)
	}

	key := overrideKey(override.CookieDomain, override.CookieName)
	if err := s.rdb.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store override: %w", err)
	}

	setKey := activeSetKey(override.CookieDomain)
	if err := s.rdb.SAdd(ctx, setKey, override.CookieName).Err(); err != nil {
		return fmt.Errorf("failed to add to active set: %w", err)
	}

	return nil
}

// Unmute removes the override for the cookie.
func (s *Store) Unmute(ctx context.Context, domain, name string) error {
	if err := s.rdb.Del(ctx, overrideKey(domain, name)).Err(); err != nil {
		return fmt.Errorf("failed to delete override: %w", err)
	}

	if err := s.rdb.SRem(ctx, activeSetKey(domain), name).Err(); err != nil {
		return fmt.Errorf("failed to remove from active set: %w", err)
	}

	return nil
}

// IsMuted reports whether an override exists for the cookie.
func (s *Store) IsMuted(ctx context.Context, domain, name string) (bool, error) {
	err := s.rdb.Get(ctx, overrideKey(domain, name)).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil // Key doesnt exist
		}

		return false, fmt.Errorf("failed to check override: %w", err)
	}

	return true, nil
}

// ListMuted returns all overrides recorded for the domain. Entries
// whose value has expired are skipped.
func (s *Store) ListMuted(ctx context.Context, domain string) ([]Override, error) {
	names, err := s.rdb.SMembers(ctx, activeSetKey(domain)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list overrides: %w", err)
	}

	muted := make([]Override, 0, len(names))
	for _, name := range names {
		data, err := s.rdb.Get(ctx, overrideKey(domain, name)).Result()
		if err != nil {
			continue // Skip errors
		}

		var override Override
		if err := json.Unmarshal([]byte(data), &override); err != nil {
			continue
		}
		muted = append(muted, override)
	}

	return muted, nil
}

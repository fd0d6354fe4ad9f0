package overrides_test

import (
	"context"
	"testing"
	"time"

	"github.com/aiscihub/cookieguard-ai/internal/overrides"
)

func setupTestStore(t *testing.T) *overrides.Store {
	store, err := overrides.NewStore("localhost:6379", "", 1, 0) // Use DB 1 for testing
	if err != nil {
		t.Skip("Redis not available, skipping test")
	}
	return store
}

func cleanup(store *overrides.Store, domain string, names ...string) {
	ctx := context.Background()
	for _, name := range names {
		store.GetClient().Del(ctx, "override:"+domain+":"+name)
	}
	store.GetClient().Del(ctx, "overrides:active:"+domain)
}

func TestMuteAndIsMuted(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	defer cleanup(store, "example.com", "session_id")

	err := store.Mute(ctx, overrides.Override{
		CookieName:   "session_id",
		CookieDomain: "example.com",
		Reason:       "internal test cookie",
	})
	if err != nil {
		t.Fatalf("Failed to mute cookie: %v", err)
	}

	muted, err := store.IsMuted(ctx, "example.com", "session_id")
	if err != nil {
		t.Fatalf("Failed to check override: %v", err)
	}
	if !muted {
		t.Errorf("Expected cookie to be muted")
	}

	muted, err = store.IsMuted(ctx, "example.com", "other_cookie")
	if err != nil {
		t.Fatalf("Failed to check unmuted cookie: %v", err)
	}
	if muted {
		t.Errorf("Expected other cookie to be unmuted")
	}
}

func TestUnmute(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	defer cleanup(store, "example.com", "tracker_id")

	err := store.Mute(ctx, overrides.Override{
		CookieName:   "tracker_id",
		CookieDomain: "example.com",
	})
	if err != nil {
		t.Fatalf("Failed to mute cookie: %v", err)
	}

	if err := store.Unmute(ctx, "example.com", "tracker_id"); err != nil {
		t.Fatalf("Failed to unmute cookie: %v", err)
	}

	muted, err := store.IsMuted(ctx, "example.com", "tracker_id")
	if err != nil {
		t.Fatalf("Failed to check override: %v", err)
	}
	if muted {
		t.Errorf("Expected cookie to be unmuted after Unmute")
	}

	listed, err := store.ListMuted(ctx, "example.com")
	if err != nil {
		t.Fatalf("Failed to list overrides: %v", err)
	}
	for _, override := range listed {
		if override.CookieName == "tracker_id" {
			t.Errorf("Expected unmuted cookie to be absent from list")
		}
	}
}

func TestListMuted(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	defer cleanup(store, "shop.example.com", "_ga", "_fbp")

	names := []string{"_ga", "_fbp"}
	for _, name := range names {
		err := store.Mute(ctx, overrides.Override{
			CookieName:   name,
			CookieDomain: "shop.example.com",
			Reason:       "accepted tracking",
		})
		if err != nil {
			t.Fatalf("Failed to mute %s: %v", name, err)
		}
	}

	listed, err := store.ListMuted(ctx, "shop.example.com")
	if err != nil {
		t.Fatalf("Failed to list overrides: %v", err)
	}
	if len(listed) != 2 {
		t.Errorf("Expected 2 overrides, got %d", len(listed))
	}
	for _, override := range listed {
		if override.MutedAt.IsZero() {
			t.Errorf("Expected MutedAt to be set for %s", override.CookieName)
		}
	}

	other, err := store.ListMuted(ctx, "unrelated.example.com")
	if err != nil {
		t.Fatalf("Failed to list overrides for unrelated domain: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("Expected no overrides for unrelated domain, got %d", len(other))
	}
}

func TestMuteWithTTLExpires(t *testing.T) {
	store, err := overrides.NewStore("localhost:6379", "", 1, 50*time.Millisecond)
	if err != nil {
		t.Skip("Redis not available, skipping test")
	}
	defer store.Close()

	ctx := context.Background()
	defer cleanup(store, "example.com", "short_lived")

	err = store.Mute(ctx, overrides.Override{
		CookieName:   "short_lived",
		CookieDomain: "example.com",
	})
	if err != nil {
		t.Fatalf("Failed to mute cookie: %v", err)
	}

	time.Sleep(150 * time.Millisecond)

	muted, err := store.IsMuted(ctx, "example.com", "short_lived")
	if err != nil {
		t.Fatalf("Failed to check override: %v", err)
	}
	if muted {
		t.Errorf("Expected override to expire")
	}

	listed, err := store.ListMuted(ctx, "example.com")
	if err != nil {
		t.Fatalf("Failed to list overrides: %v", err)
	}
	for _, override := range listed {
		if override.CookieName == "short_lived" {
			t.Errorf("Expected expired override to be skipped in list")
		}
	}
}

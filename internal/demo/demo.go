// Package demo provides the sample cookie set served by the demo
// endpoint. The cookies mirror what a scan of a small banking site
// might collect, with a spread of deliberate misconfigurations.
package demo

import (
	"time"

	"github.com/aiscihub/cookieguard-ai/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// SiteHost is the host the demo pretends to scan.
const SiteHost = "mybank.com"

// SigningKey signs the demo session token. It is not a secret.
const SigningKey = "demo-signing-key"

// fallbackSessionJWT carries the same header and claims with a
// truncated signature, used only if signing fails.
const fallbackSessionJWT = "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJ1c2VySWQiOiIxMjM0NSJ9.SflKxwRJ"

// sessionJWT returns a deterministic signed token so the demo payload
// looks like a real session credential.
func sessionJWT() string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"userId": "12345"})
	signed, err := token.SignedString([]byte(SigningKey))
	if err != nil {
		return fallbackSessionJWT
	}
	return signed
}

func epoch(t time.Time) *float64 {
	e := float64(t.Unix())
	return &e
}

// Cookies returns the demo cookie set. Expirations are taken relative
// to now so the lifetime checks behave the same on any date.
func Cookies(now time.Time) []models.CookieRecord {
	return []models.CookieRecord{
		{
			Name:           "session_token",
			Domain:         ".mybank.com",
			Path:           "/",
			Secure:         true,
			HTTPOnly:       false, // CRITICAL ISSUE
			ExpirationDate: epoch(now.Add(30 * 24 * time.Hour)),
			Value:          sessionJWT(),
		},
		{
			Name:           "user_preferences",
			Domain:         "mybank.com",
			Path:           "/",
			Secure:         false,
			HTTPOnly:       false,
			SameSite:       "Lax",
			ExpirationDate: epoch(now.Add(365 * 24 * time.Hour)),
			Value:          "theme=dark;lang=en",
		},
		{
			Name:           "_ga",
			Domain:         ".mybank.com",
			Path:           "/",
			Secure:         false,
			HTTPOnly:       false,
			ExpirationDate: epoch(now.Add(365 * 24 * time.Hour)),
			Value:          "GA1.2.123456789.1234567890",
		},
		{
			Name:           "auth_remember",
			Domain:         ".mybank.com",
			Path:           "/",
			Secure:         true,
			HTTPOnly:       true,
			SameSite:       "Strict",
			ExpirationDate: epoch(now.Add(14 * 24 * time.Hour)),
			Value:          "a1b2c3d4e5f6",
		},
		{
			Name:     "JSESSIONID",
			Domain:   "shop.example.com",
			Path:     "/",
			Secure:   false, // HIGH ISSUE
			HTTPOnly: true,
			SameSite: "Lax",
			Value:    "5F4DCC3B5AA765D61D8327DEB882CF99",
		},
	}
}

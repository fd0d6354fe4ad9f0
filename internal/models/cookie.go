package models

import (
	"errors"
	"strings"
	"time"
)

// SameSite policy values after normalisation. Collectors report a mix of
// vocabularies ("Lax", "None", Chrome's "no_restriction", empty string), so
// raw records keep the string as received and callers normalise through
// ParseSameSite.
type SameSite string

const (
	SameSiteStrict SameSite = "strict"
	SameSiteLax    SameSite = "lax"
	SameSiteNone   SameSite = "none"
	SameSiteUnset  SameSite = "unset"
)

var (
	ErrMissingName   = errors.New("models: cookie record missing name")
	ErrMissingDomain = errors.New("models: cookie record missing domain")
)

// CookieRecord is one cookie as received from a browser, extension or
// import. ExpirationDate and HostOnly are pointers because absence carries
// meaning: no expiry means a session cookie, and an unreported hostOnly
// flag means the collector could not verify host scoping.
type CookieRecord struct {
	Name           string   `json:"name"`
	Domain         string   `json:"domain"`
	Path           string   `json:"path,omitempty"`
	Secure         bool     `json:"secure"`
	HTTPOnly       bool     `json:"httpOnly"`
	SameSite       string   `json:"sameSite,omitempty"`
	ExpirationDate *float64 `json:"expirationDate,omitempty"`
	Value          string   `json:"value,omitempty"`
	HostOnly       *bool    `json:"hostOnly,omitempty"`
}

// Validate checks the two required fields. Anything else is optional and
// defaulted downstream.
func (c *CookieRecord) Validate() error {
	if c.Name == "" {
		return ErrMissingName
	}
	if c.Domain == "" {
		return ErrMissingDomain
	}
	return nil
}

// ParseSameSite maps collector vocabulary onto the four canonical values.
// Chrome extension exports use "no_restriction" for SameSite=None.
func ParseSameSite(raw string) SameSite {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "strict":
		return SameSiteStrict
	case "lax":
		return SameSiteLax
	case "none", "no_restriction":
		return SameSiteNone
	default:
		return SameSiteUnset
	}
}

// SameSitePolicy returns the normalised SameSite value for this record.
func (c *CookieRecord) SameSitePolicy() SameSite {
	return ParseSameSite(c.SameSite)
}

// CrossSiteSendable reports whether the cookie is sent with cross-site
// requests (SameSite none or not set at all).
func (c *CookieRecord) CrossSiteSendable() bool {
	ss := c.SameSitePolicy()
	return ss == SameSiteNone || ss == SameSiteUnset
}

// EffectivePath returns the cookie path, defaulting to "/".
func (c *CookieRecord) EffectivePath() string {
	if c.Path == "" {
		return "/"
	}
	return c.Path
}

// IsSession reports whether the cookie has no expiry date.
func (c *CookieRecord) IsSession() bool {
	return c.ExpirationDate == nil
}

// WildcardDomain reports whether the Domain attribute starts with a dot,
// making the cookie readable by every subdomain.
func (c *CookieRecord) WildcardDomain() bool {
	return strings.HasPrefix(c.Domain, ".")
}

// BareDomain returns the domain without a leading wildcard dot.
func (c *CookieRecord) BareDomain() string {
	return strings.TrimPrefix(c.Domain, ".")
}

// DaysUntilExpiry returns whole days between now and the expiry date,
// clamped to zero for session cookies and already-expired dates. The
// caller supplies now so results are reproducible.
func (c *CookieRecord) DaysUntilExpiry(now time.Time) int {
	if c.ExpirationDate == nil {
		return 0
	}
	expiry := time.Unix(int64(*c.ExpirationDate), 0)
	days := int(expiry.Sub(now).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// LoginContext is an optional batch-level description of a login
// transition: which cookies existed before the login and which changed
// value during it. Only behaviour features read it.
type LoginContext struct {
	LoginEvent          bool     `json:"loginEvent"`
	ChangedCookieNames  []string `json:"changedCookieNames"`
	BeforeSnapshotNames []string `json:"beforeSnapshotNames"`
}

// Changed reports whether the named cookie changed value during login.
func (lc *LoginContext) Changed(name string) bool {
	for _, n := range lc.ChangedCookieNames {
		if n == name {
			return true
		}
	}
	return false
}

// InBeforeSnapshot reports whether the named cookie existed before the
// login transition.
func (lc *LoginContext) InBeforeSnapshot(name string) bool {
	for _, n := range lc.BeforeSnapshotNames {
		if n == name {
			return true
		}
	}
	return false
}

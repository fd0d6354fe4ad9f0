package features

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/aiscihub/cookieguard-ai/internal/models"
)

// Name pattern families for intent hints. Matched against the lowercased
// cookie name.
var (
	authPatterns = []string{
		`session`, `auth`, `token`, `login`, `jwt`, `bearer`, `sid`, `user`, `sso`, `refresh`,
	}
	trackingPatterns = []string{
		`^_ga`, `^_gid`, `analytics`, `tracking`, `^utm`, `^fbp`, `amplitude`, `mixpanel`, `^_cl`,
	}
	preferencePatterns = []string{
		`lang`, `theme`, `consent`, `preferences`, `settings`, `locale`, `timezone`, `currency`,
	}
)

var hexValueRe = regexp.MustCompile(`^[a-f0-9]+$`)

// Standard and URL-safe base64 alphabets plus padding.
const base64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/=-_"

// Extractor turns one cookie record into the fixed 38-feature vector.
// Extraction does no I/O; the caller supplies now so expiry maths are
// reproducible.
type Extractor struct {
	auth       []*regexp.Regexp
	tracking   []*regexp.Regexp
	preference []*regexp.Regexp
}

// NewExtractor compiles the name pattern families once.
func NewExtractor() *Extractor {
	return &Extractor{
		auth:       compilePatterns(authPatterns),
		tracking:   compilePatterns(trackingPatterns),
		preference: compilePatterns(preferencePatterns),
	}
}

func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(p)
	}
	return compiled
}

func matchesAny(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// Extract computes all feature groups for one cookie. Missing optional
// fields never fail: no sameSite reads as unset, no expiry as a session
// cookie, no value zeroes the value features, and a nil login context
// zeroes the behaviour flags. siteHost is the host being scanned, used
// only for the third-party signal; empty disables it.
func (e *Extractor) Extract(cookie models.CookieRecord, lctx *models.LoginContext, siteHost string, now time.Time) Vector {
	f := make(Vector, TotalFeatures())

	// Attributes
	samesite := cookie.SameSitePolicy()
	f["has_secure"] = boolFeature(cookie.Secure)
	f["has_httponly"] = boolFeature(cookie.HTTPOnly)
	f["has_samesite"] = boolFeature(cookie.SameSite != "")
	f["samesite_level"] = samesiteLevel(samesite)

	days := cookie.DaysUntilExpiry(now)
	if cookie.IsSession() {
		f["is_session_cookie"] = 1
		f["expiry_days"] = 0
		f["lifetime_category"] = 0
	} else {
		f["is_session_cookie"] = 0
		f["expiry_days"] = float64(min(days, 365))
		f["lifetime_category"] = lifetimeCategory(days)
	}

	// Scope
	path := cookie.EffectivePath()
	f["domain_is_wildcard"] = boolFeature(cookie.WildcardDomain())
	f["domain_depth"] = float64(strings.Count(cookie.Domain, "."))
	f["etld_match"] = 1
	f["path_is_root"] = boolFeature(path == "/")
	f["path_depth"] = float64(max(strings.Count(path, "/")-1, 0))
	f["cross_site_sendable"] = boolFeature(cookie.CrossSiteSendable())
	breadth := 1.0
	if cookie.WildcardDomain() {
		breadth = 2.0
	}
	f["exposure_score"] = breadth * (1 + f["expiry_days"]/365.0)

	// Lexical
	name := strings.ToLower(cookie.Name)
	f["name_matches_auth"] = boolFeature(matchesAny(e.auth, name))
	f["name_matches_tracking"] = boolFeature(matchesAny(e.tracking, name))
	f["name_matches_preference"] = boolFeature(matchesAny(e.preference, name))
	f["has_host_prefix"] = boolFeature(strings.HasPrefix(name, "__host-"))
	f["has_secure_prefix"] = boolFeature(strings.HasPrefix(name, "__secure-"))
	f["name_entropy"] = Entropy(name)
	f["name_length"] = float64(len(name))
	f["name_has_underscore"] = boolFeature(strings.Contains(name, "_"))

	value := cookie.Value
	if value != "" {
		f["value_length"] = float64(len(value))
		f["value_entropy_bucket"] = entropyBucket(Entropy(value))
		f["value_looks_like_jwt"] = boolFeature(strings.Count(value, ".") == 2 && len(value) > 50)
		f["value_looks_like_hex"] = boolFeature(hexValueRe.MatchString(strings.ToLower(value)))
		f["value_looks_base64"] = boolFeature(looksBase64(value))
		f["value_has_padding"] = boolFeature(strings.HasSuffix(value, "="))
		f["value_is_numeric"] = boolFeature(isNumeric(value))
		f["value_length_bucket"] = valueLengthBucket(len(value))
	} else {
		f["value_length"] = 0
		f["value_entropy_bucket"] = 0
		f["value_looks_like_jwt"] = 0
		f["value_looks_like_hex"] = 0
		f["value_looks_base64"] = 0
		f["value_has_padding"] = 0
		f["value_is_numeric"] = 0
		f["value_length_bucket"] = 0
	}

	// Behaviour
	e.extractBehavior(f, cookie, lctx, siteHost, days)

	return f
}

func (e *Extractor) extractBehavior(f Vector, cookie models.CookieRecord, lctx *models.LoginContext, siteHost string, days int) {
	if lctx != nil && lctx.LoginEvent && len(lctx.ChangedCookieNames) > 0 {
		changed := lctx.Changed(cookie.Name)
		f["f_changed_during_login"] = boolFeature(changed)
		if len(lctx.BeforeSnapshotNames) > 0 {
			wasPresent := lctx.InBeforeSnapshot(cookie.Name)
			f["f_new_after_login"] = boolFeature(!wasPresent)
			f["f_rotated_after_login"] = boolFeature(changed && wasPresent)
		} else {
			// No before snapshot: a changed cookie is the best signal we
			// have for "new".
			f["f_new_after_login"] = boolFeature(changed)
			f["f_rotated_after_login"] = 0
		}
	} else {
		f["f_changed_during_login"] = 0
		f["f_new_after_login"] = 0
		f["f_rotated_after_login"] = 0
	}

	// Persistent days bucket: 0=session, 1=1-7d, 2=8-30d, 3=>30d
	switch {
	case cookie.IsSession():
		f["f_persistent_days_bucket"] = 0
	case days <= 7:
		f["f_persistent_days_bucket"] = 1
	case days <= 30:
		f["f_persistent_days_bucket"] = 2
	default:
		f["f_persistent_days_bucket"] = 3
	}

	f["f_subdomain_shared"] = boolFeature(cookie.WildcardDomain() ||
		(cookie.HostOnly != nil && !*cookie.HostOnly))

	if siteHost != "" {
		clean := cookie.BareDomain()
		f["f_third_party_context"] = boolFeature(clean != siteHost && !strings.HasSuffix(clean, "."+siteHost))
	} else {
		f["f_third_party_context"] = 0
	}

	f["f_login_behavior_score"] = f["f_changed_during_login"] +
		f["f_new_after_login"] + f["f_rotated_after_login"]

	f["f_security_posture_score"] = f["has_secure"] + f["has_httponly"] +
		math.Min(f["samesite_level"], 1)
}

// Entropy is the Shannon entropy of the character distribution, in bits.
func Entropy(s string) float64 {
	if s == "" {
		return 0
	}
	counts := make(map[rune]int)
	total := 0
	for _, r := range s {
		counts[r]++
		total++
	}
	entropy := 0.0
	for _, count := range counts {
		p := float64(count) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func samesiteLevel(ss models.SameSite) float64 {
	switch ss {
	case models.SameSiteStrict:
		return 2
	case models.SameSiteLax:
		return 1
	default:
		return 0
	}
}

func lifetimeCategory(days int) float64 {
	switch {
	case days < 1:
		return 0
	case days < 7:
		return 1
	case days < 30:
		return 2
	default:
		return 3
	}
}

func entropyBucket(entropy float64) float64 {
	switch {
	case entropy < 2:
		return 0
	case entropy < 4:
		return 1
	default:
		return 2
	}
}

func valueLengthBucket(length int) float64 {
	switch {
	case length < 20:
		return 0
	case length < 50:
		return 1
	case length < 100:
		return 2
	default:
		return 3
	}
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// looksBase64 tolerates a small share of foreign characters: fewer than
// 10% of the distinct characters (at least one) may fall outside the
// base64 alphabets.
func looksBase64(s string) bool {
	distinct := make(map[rune]struct{})
	for _, r := range s {
		distinct[r] = struct{}{}
	}
	outside := 0
	for r := range distinct {
		if !strings.ContainsRune(base64Alphabet, r) {
			outside++
		}
	}
	return float64(outside) < math.Max(float64(len(distinct))*0.1, 1)
}

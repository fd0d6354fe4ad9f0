package features

// SchemaVersion identifies the feature set and its ordering. The
// model-backed classifier refuses artifacts trained against a different
// version, and explainability indexes features by name, so any change to
// the set below must bump this.
const SchemaVersion = "2.0"

// Group names in canonical order.
const (
	GroupAttributes = "attributes"
	GroupScope      = "scope"
	GroupLexical    = "lexical"
	GroupBehavior   = "behavior"
)

var groupOrder = []string{GroupAttributes, GroupScope, GroupLexical, GroupBehavior}

var groupFeatures = map[string][]string{
	GroupAttributes: {
		"has_secure", "has_httponly", "has_samesite", "samesite_level",
		"is_session_cookie", "expiry_days", "lifetime_category",
	},
	GroupScope: {
		"domain_is_wildcard", "domain_depth", "etld_match",
		"path_is_root", "path_depth", "cross_site_sendable", "exposure_score",
	},
	GroupLexical: {
		"name_matches_auth", "name_matches_tracking", "name_matches_preference",
		"has_host_prefix", "has_secure_prefix", "name_entropy", "name_length",
		"name_has_underscore", "value_length", "value_entropy_bucket",
		"value_looks_like_jwt", "value_looks_like_hex", "value_looks_base64",
		"value_has_padding", "value_is_numeric", "value_length_bucket",
	},
	GroupBehavior: {
		"f_changed_during_login", "f_new_after_login", "f_rotated_after_login",
		"f_persistent_days_bucket", "f_subdomain_shared", "f_third_party_context",
		"f_login_behavior_score", "f_security_posture_score",
	},
}

// FeatureNames returns every feature name in canonical order, group by
// group. This ordering is the contract between extractor, classifier
// artifacts and explainability.
func FeatureNames() []string {
	names := make([]string, 0, TotalFeatures())
	for _, group := range groupOrder {
		names = append(names, groupFeatures[group]...)
	}
	return names
}

// FeatureGroups returns a copy of the group -> feature names mapping.
func FeatureGroups() map[string][]string {
	groups := make(map[string][]string, len(groupFeatures))
	for group, names := range groupFeatures {
		copied := make([]string, len(names))
		copy(copied, names)
		groups[group] = copied
	}
	return groups
}

// TotalFeatures returns the size of the feature vector.
func TotalFeatures() int {
	total := 0
	for _, names := range groupFeatures {
		total += len(names)
	}
	return total
}

// Vector is a named feature vector. Lookups go through Get so missing
// names read as zero instead of panicking.
type Vector map[string]float64

// Get returns the named feature value, zero when absent.
func (v Vector) Get(name string) float64 {
	return v[name]
}

// Ordered flattens the vector into the given name order, for classifiers
// that consume positional input.
func (v Vector) Ordered(names []string) []float64 {
	out := make([]float64, len(names))
	for i, name := range names {
		out[i] = v[name]
	}
	return out
}

// Package versions implements Mobile Connect protocol version negotiation.
// Several historical protocol revisions are in active deployment, each with
// different required claims and scope semantics; this package computes the
// effective version for a requested scope against what a provider advertises.
package versions

import (
	"strconv"
	"strings"

	mcerrors "github.com/openmobileid/mobileconnect/pkg/errors"
)

// Recognized protocol version identifiers, oldest to newest.
const (
	VersionMC11 = "mc_v1.1"
	VersionMC12 = "mc_v1.2"
	VersionDI23 = "mc_di_r2_v2.3"
)

// Canonical scope tokens. Membership checks against these are
// case-sensitive, space-delimited containment.
const (
	ScopeOpenID             = "openid"
	ScopeAuthn              = "mc_authn"
	ScopeAuthz              = "mc_authz"
	ScopeIdentityPhone      = "mc_identity_phonenumber"
	ScopeIdentityNationalID = "mc_identity_nationalid"
	ScopeIdentitySignup     = "mc_identity_signup"
	ScopeIdentitySignupPlus = "mc_identity_signupplus"
	ScopeKYCPlain           = "mc_kyc_plain"
	ScopeKYCHashed          = "mc_kyc_hashed"
)

// defaultVersions registers the default protocol version per scope token.
var defaultVersions = map[string]string{
	ScopeOpenID:             VersionMC11,
	ScopeAuthn:              VersionMC11,
	ScopeAuthz:              VersionMC12,
	ScopeIdentityPhone:      VersionMC12,
	ScopeIdentityNationalID: VersionMC12,
	ScopeIdentitySignup:     VersionMC12,
	ScopeIdentitySignupPlus: VersionMC12,
	ScopeKYCPlain:           VersionDI23,
	ScopeKYCHashed:          VersionDI23,
}

var recognizedVersions = map[string]bool{
	VersionMC11: true,
	VersionMC12: true,
	VersionDI23: true,
}

var kycScopes = []string{ScopeKYCPlain, ScopeKYCHashed}

var authScopes = []string{
	ScopeAuthn,
	ScopeAuthz,
	ScopeIdentityPhone,
	ScopeIdentityNationalID,
	ScopeIdentitySignup,
	ScopeIdentitySignupPlus,
}

// ScopeTokens splits a space-delimited scope string into its tokens.
func ScopeTokens(scope string) []string {
	return strings.Fields(scope)
}

// ContainsScope reports whether the space-delimited scope string contains
// the given token. Comparison is case-sensitive.
func ContainsScope(scope, token string) bool {
	for _, t := range ScopeTokens(scope) {
		if t == token {
			return true
		}
	}
	return false
}

// ContainsAnyScope reports whether scope contains any of the given tokens.
func ContainsAnyScope(scope string, tokens []string) bool {
	for _, token := range tokens {
		if ContainsScope(scope, token) {
			return true
		}
	}
	return false
}

// CoerceVersion resolves an empty requested version to the registered
// default for the scope, falling back to the base Mobile Connect default.
// A non-empty requested version is returned unchanged.
func CoerceVersion(requested, scope string) string {
	if requested != "" {
		return requested
	}
	// The most capable scope token present decides the default.
	best := ""
	for _, token := range ScopeTokens(scope) {
		if v, ok := defaultVersions[token]; ok {
			if best == "" || CompareVersions(v, best) > 0 {
				best = v
			}
		}
	}
	if best != "" {
		return best
	}
	return defaultVersions[ScopeOpenID]
}

// GetCurrentVersion computes the effective protocol version for a request.
// A recognized literal requested version is honored unchanged; otherwise the
// requested scope set and the provider's advertised versions decide, in
// descending order of capability. An unresolvable scope/version combination
// is an error, never a silent default.
func GetCurrentVersion(requested, scope string, providerVersions []string) (string, error) {
	if requested != "" && recognizedVersions[requested] {
		return requested, nil
	}

	if ContainsAnyScope(scope, kycScopes) && versionListed(providerVersions, VersionDI23) {
		return VersionDI23, nil
	}
	if ContainsScope(scope, ScopeOpenID) && ContainsAnyScope(scope, authScopes) {
		return VersionMC12, nil
	}
	if ContainsScope(scope, ScopeOpenID) {
		return VersionMC11, nil
	}

	return "", mcerrors.Newf(mcerrors.ErrCodeUnsupportedVersion,
		"unable to resolve a protocol version for scope %q", scope)
}

func versionListed(providerVersions []string, version string) bool {
	for _, v := range providerVersions {
		if v == version {
			return true
		}
	}
	return false
}

// CompareVersions orders two version identifiers by their numeric vX.Y
// suffix: negative when a < b, zero when equal, positive when a > b.
// Identifiers without a parseable suffix order lowest.
func CompareVersions(a, b string) int {
	amaj, amin := parseVersion(a)
	bmaj, bmin := parseVersion(b)
	if amaj != bmaj {
		return amaj - bmaj
	}
	return amin - bmin
}

func parseVersion(version string) (major, minor int) {
	idx := strings.LastIndex(version, "v")
	if idx < 0 {
		return 0, 0
	}
	parts := strings.SplitN(version[idx+1:], ".", 2)
	major, _ = strconv.Atoi(parts[0])
	if len(parts) == 2 {
		minor, _ = strconv.Atoi(parts[1])
	}
	return major, minor
}

// SupportedVersions maps scope tokens to the protocol version a provider
// supports for them, and derives the single maximum across all entries.
// The maximum decides whether version-gated behavior, such as mandatory
// JWKS signature validation, applies.
type SupportedVersions struct {
	byScope map[string]string
	max     string
}

// NewSupportedVersions builds a SupportedVersions from the provider
// metadata's scope-to-version entries.
func NewSupportedVersions(entries []map[string]string) *SupportedVersions {
	sv := &SupportedVersions{byScope: make(map[string]string)}
	for _, entry := range entries {
		for scope, version := range entry {
			sv.byScope[scope] = version
			if sv.max == "" || CompareVersions(version, sv.max) > 0 {
				sv.max = version
			}
		}
	}
	return sv
}

// VersionFor returns the provider's version for a scope token, falling back
// to the registered default when the provider is silent.
func (sv *SupportedVersions) VersionFor(scope string) string {
	if sv != nil {
		if v, ok := sv.byScope[scope]; ok {
			return v
		}
	}
	return CoerceVersion("", scope)
}

// MaxSupportedVersion returns the newest version across all entries, or the
// base default when no entries were advertised.
func (sv *SupportedVersions) MaxSupportedVersion() string {
	if sv == nil || sv.max == "" {
		return defaultVersions[ScopeOpenID]
	}
	return sv.max
}

// IsVersionSupported reports whether the provider's maximum supported
// version is at least the given version.
func (sv *SupportedVersions) IsVersionSupported(version string) bool {
	return CompareVersions(sv.MaxSupportedVersion(), version) >= 0
}

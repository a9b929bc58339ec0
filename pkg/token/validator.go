package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/openmobileid/mobileconnect/pkg/logging"
	"github.com/openmobileid/mobileconnect/pkg/versions"
)

// ValidationResult is the outcome of a token validation pass. The zero
// value is not meaningful; every path yields an explicit result.
type ValidationResult string

const (
	// Valid means claims and signature both checked out.
	Valid ValidationResult = "valid"
	// ValidValidationSkipped is the legacy-compatibility outcome: no
	// protocol version was available and the operator never advertised a
	// JWKS endpoint, so validation was skipped entirely. Callers must
	// surface this distinctly from a fully validated token.
	ValidValidationSkipped ValidationResult = "valid_validation_skipped"

	TokenMissing           ValidationResult = "token_missing"
	MalformedToken         ValidationResult = "malformed_token"
	MissingAtHash          ValidationResult = "missing_at_hash"
	MissingACR             ValidationResult = "missing_acr"
	MissingAMR             ValidationResult = "missing_amr"
	MissingHashedLoginHint ValidationResult = "missing_hashed_login_hint"
	InvalidNonce           ValidationResult = "invalid_nonce"
	InvalidIssuer          ValidationResult = "invalid_issuer"
	InvalidAudience        ValidationResult = "invalid_audience"
	TokenExpired           ValidationResult = "token_expired"
	MaxAgeExceeded         ValidationResult = "max_age_exceeded"
	NoMatchingKey          ValidationResult = "no_matching_key"
	InvalidSignature       ValidationResult = "invalid_signature"

	AccessTokenMissing ValidationResult = "access_token_missing"
	AccessTokenExpired ValidationResult = "access_token_expired"
)

// IsValid reports whether the result allows the flow to proceed.
func (r ValidationResult) IsValid() bool {
	return r == Valid || r == ValidValidationSkipped
}

// Validator checks ID tokens and access tokens against the protocol rules.
type Validator struct {
	now    func() time.Time
	logger zerolog.Logger
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ValidatorOption {
	return func(v *Validator) { v.now = now }
}

// NewValidator creates a Validator.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{
		now:    time.Now,
		logger: logging.GetLogger("tokenvalidation"),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateIDToken checks an ID token's claims, then its signature against
// the supplied key set. Claims are evaluated in a fixed order, short
// circuiting on the first failure; the signature is only checked once all
// claims pass.
//
// When version is empty and keySet is nil, the operator never advertised a
// JWKS endpoint and no protocol version could be negotiated; validation is
// skipped and the token reported ValidValidationSkipped.
func (v *Validator) ValidateIDToken(idToken, clientID, issuer, expectedNonce string, maxAge time.Duration, keySet *KeySet, version string) ValidationResult {
	if idToken == "" {
		return TokenMissing
	}
	if version == "" && keySet == nil {
		v.logger.Warn().Msg("no version or jwks available, skipping id token validation")
		return ValidValidationSkipped
	}

	if result := v.validateClaims(idToken, clientID, issuer, expectedNonce, maxAge, version); result != Valid {
		return result
	}
	return v.ValidateSignature(idToken, keySet)
}

func (v *Validator) validateClaims(idToken, clientID, issuer, expectedNonce string, maxAge time.Duration, version string) ValidationResult {
	claims, err := DecodeClaims(idToken)
	if err != nil {
		return MalformedToken
	}

	if version == versions.VersionDI23 {
		if _, ok := claims["at_hash"]; !ok {
			return MissingAtHash
		}
		if _, ok := claims["acr"]; !ok {
			return MissingACR
		}
		if _, ok := claims["amr"]; !ok {
			return MissingAMR
		}
		if _, ok := claims["hashed_login_hint"]; !ok {
			return MissingHashedLoginHint
		}
	}

	if expectedNonce != "" && stringClaim(claims, "nonce") != expectedNonce {
		return InvalidNonce
	}
	if stringClaim(claims, "iss") != issuer {
		return InvalidIssuer
	}
	if !audienceMatches(claims["aud"], clientID) && stringClaim(claims, "azp") != clientID {
		return InvalidAudience
	}

	now := v.now()
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil && now.After(exp.Time) {
		return TokenExpired
	}
	if maxAge > 0 {
		if iat, err := claims.GetIssuedAt(); err == nil && iat != nil && now.After(iat.Time.Add(maxAge)) {
			return MaxAgeExceeded
		}
	}
	return Valid
}

// ValidateSignature cryptographically verifies the token's header and
// payload against its signature, using the key selected from keySet by the
// token's (alg, kid) header pair.
func (v *Validator) ValidateSignature(idToken string, keySet *KeySet) ValidationResult {
	parts := strings.Split(idToken, ".")
	if len(parts) != 3 {
		return MalformedToken
	}

	alg, kid, err := DecodeHeader(idToken)
	if err != nil {
		return MalformedToken
	}

	key, found := keySet.MatchKey(alg, kid)
	if !found {
		return NoMatchingKey
	}

	method := jwt.GetSigningMethod(alg)
	if method == nil {
		return InvalidSignature
	}
	signature, err := jwt.NewParser().DecodeSegment(parts[2])
	if err != nil {
		return InvalidSignature
	}
	raw, err := RawKey(key)
	if err != nil {
		return InvalidSignature
	}

	if err := method.Verify(parts[0]+"."+parts[1], signature, raw); err != nil {
		v.logger.Debug().Err(err).Str("alg", alg).Str("kid", kid).Msg("id token signature verification failed")
		return InvalidSignature
	}
	return Valid
}

// ValidateAccessToken checks that a token response carries a usable,
// unexpired access token.
func (v *Validator) ValidateAccessToken(data *ResponseData) ValidationResult {
	if data == nil || data.AccessToken == "" {
		return AccessTokenMissing
	}
	if data.Expired(v.now()) {
		return AccessTokenExpired
	}
	return Valid
}

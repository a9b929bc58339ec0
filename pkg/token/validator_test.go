package token

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmobileid/mobileconnect/pkg/versions"
)

func generateKeySet(t *testing.T, kid string) (*rsa.PrivateKey, *KeySet) {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	key, err := jwk.FromRaw(privateKey.Public())
	require.NoError(t, err)
	if kid != "" {
		require.NoError(t, key.Set(jwk.KeyIDKey, kid))
	}
	require.NoError(t, key.Set(jwk.AlgorithmKey, jwa.RS256))

	set := jwk.NewSet()
	require.NoError(t, set.AddKey(key))
	data, err := json.Marshal(set)
	require.NoError(t, err)

	keySet, err := ParseKeySet(data)
	require.NoError(t, err)
	return privateKey, keySet
}

func signToken(t *testing.T, privateKey *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	signed, err := token.SignedString(privateKey)
	require.NoError(t, err)
	return signed
}

func baseClaims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":   "https://operator.example.com",
		"aud":   "client-id",
		"sub":   "subscriber-pcr",
		"nonce": "expected-nonce",
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
}

func TestValidateIDToken_Valid(t *testing.T) {
	privateKey, keySet := generateKeySet(t, "key-1")
	idToken := signToken(t, privateKey, "key-1", baseClaims())

	validator := NewValidator()
	result := validator.ValidateIDToken(idToken, "client-id", "https://operator.example.com",
		"expected-nonce", time.Hour, keySet, versions.VersionMC12)
	assert.Equal(t, Valid, result)
	assert.True(t, result.IsValid())
}

func TestValidateIDToken_TokenMissing(t *testing.T) {
	validator := NewValidator()
	result := validator.ValidateIDToken("", "client-id", "issuer", "nonce", 0, nil, versions.VersionMC12)
	assert.Equal(t, TokenMissing, result)
}

func TestValidateIDToken_LegacyUnvalidatedPath(t *testing.T) {
	privateKey, _ := generateKeySet(t, "key-1")
	idToken := signToken(t, privateKey, "key-1", baseClaims())

	// no negotiated version and no JWKS endpoint: validation is skipped,
	// and the outcome is distinct from a fully validated token
	validator := NewValidator()
	result := validator.ValidateIDToken(idToken, "client-id", "https://operator.example.com",
		"expected-nonce", time.Hour, nil, "")
	assert.Equal(t, ValidValidationSkipped, result)
	assert.True(t, result.IsValid())
	assert.NotEqual(t, Valid, result)
}

func TestValidateIDToken_ClaimFailures(t *testing.T) {
	privateKey, keySet := generateKeySet(t, "key-1")
	validator := NewValidator()

	tests := []struct {
		name     string
		mutate   func(jwt.MapClaims)
		nonce    string
		expected ValidationResult
	}{
		{
			name:     "nonce mismatch",
			mutate:   func(c jwt.MapClaims) { c["nonce"] = "tampered" },
			nonce:    "expected-nonce",
			expected: InvalidNonce,
		},
		{
			name:     "issuer mismatch",
			mutate:   func(c jwt.MapClaims) { c["iss"] = "https://evil.example.com" },
			nonce:    "expected-nonce",
			expected: InvalidIssuer,
		},
		{
			name:     "audience mismatch",
			mutate:   func(c jwt.MapClaims) { c["aud"] = "someone-else" },
			nonce:    "expected-nonce",
			expected: InvalidAudience,
		},
		{
			name:     "expired token",
			mutate:   func(c jwt.MapClaims) { c["exp"] = time.Now().Add(-time.Hour).Unix() },
			nonce:    "expected-nonce",
			expected: TokenExpired,
		},
		{
			name:     "max age exceeded",
			mutate:   func(c jwt.MapClaims) { c["iat"] = time.Now().Add(-3 * time.Hour).Unix() },
			nonce:    "expected-nonce",
			expected: MaxAgeExceeded,
		},
		{
			name:     "empty expected nonce skips nonce check",
			mutate:   func(c jwt.MapClaims) { c["nonce"] = "anything" },
			nonce:    "",
			expected: Valid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := baseClaims()
			tt.mutate(claims)
			idToken := signToken(t, privateKey, "key-1", claims)

			result := validator.ValidateIDToken(idToken, "client-id", "https://operator.example.com",
				tt.nonce, time.Hour, keySet, versions.VersionMC12)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestValidateIDToken_MultiValuedAudienceAndAzp(t *testing.T) {
	privateKey, keySet := generateKeySet(t, "key-1")
	validator := NewValidator()

	claims := baseClaims()
	claims["aud"] = []string{"other", "client-id"}
	idToken := signToken(t, privateKey, "key-1", claims)
	result := validator.ValidateIDToken(idToken, "client-id", "https://operator.example.com",
		"expected-nonce", time.Hour, keySet, versions.VersionMC12)
	assert.Equal(t, Valid, result)

	claims = baseClaims()
	claims["aud"] = []string{"other"}
	claims["azp"] = "client-id"
	idToken = signToken(t, privateKey, "key-1", claims)
	result = validator.ValidateIDToken(idToken, "client-id", "https://operator.example.com",
		"expected-nonce", time.Hour, keySet, versions.VersionMC12)
	assert.Equal(t, Valid, result)
}

func TestValidateIDToken_DI23RequiredClaims(t *testing.T) {
	privateKey, keySet := generateKeySet(t, "key-1")
	validator := NewValidator()

	di23Claims := func() jwt.MapClaims {
		claims := baseClaims()
		claims["at_hash"] = "hash"
		claims["acr"] = "2"
		claims["amr"] = []string{"SIM_PIN"}
		claims["hashed_login_hint"] = "hint-hash"
		return claims
	}

	tests := []struct {
		name     string
		drop     string
		expected ValidationResult
	}{
		{"all present", "", Valid},
		{"missing at_hash", "at_hash", MissingAtHash},
		{"missing acr", "acr", MissingACR},
		{"missing amr", "amr", MissingAMR},
		{"missing hashed_login_hint", "hashed_login_hint", MissingHashedLoginHint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := di23Claims()
			if tt.drop != "" {
				delete(claims, tt.drop)
			}
			idToken := signToken(t, privateKey, "key-1", claims)

			result := validator.ValidateIDToken(idToken, "client-id", "https://operator.example.com",
				"expected-nonce", time.Hour, keySet, versions.VersionDI23)
			assert.Equal(t, tt.expected, result)
		})
	}

	// older versions do not require the extra claims
	idToken := signToken(t, privateKey, "key-1", baseClaims())
	result := validator.ValidateIDToken(idToken, "client-id", "https://operator.example.com",
		"expected-nonce", time.Hour, keySet, versions.VersionMC11)
	assert.Equal(t, Valid, result)
}

func TestValidateSignature_NoMatchingKey(t *testing.T) {
	signingKey, _ := generateKeySet(t, "key-a")
	_, otherKeySet := generateKeySet(t, "key-b")

	idToken := signToken(t, signingKey, "key-a", baseClaims())

	validator := NewValidator()
	result := validator.ValidateSignature(idToken, otherKeySet)
	assert.Equal(t, NoMatchingKey, result)
}

func TestValidateSignature_WrongKeySameKid(t *testing.T) {
	signingKey, _ := generateKeySet(t, "key-1")
	_, verifyKeySet := generateKeySet(t, "key-1")

	idToken := signToken(t, signingKey, "key-1", baseClaims())

	validator := NewValidator()
	result := validator.ValidateSignature(idToken, verifyKeySet)
	assert.Equal(t, InvalidSignature, result)
}

func TestValidateSignature_KidlessMatchesOnAlg(t *testing.T) {
	privateKey, keySet := generateKeySet(t, "")
	idToken := signToken(t, privateKey, "", baseClaims())

	validator := NewValidator()
	result := validator.ValidateSignature(idToken, keySet)
	assert.Equal(t, Valid, result)
}

func TestValidateSignature_Malformed(t *testing.T) {
	_, keySet := generateKeySet(t, "key-1")
	validator := NewValidator()
	assert.Equal(t, MalformedToken, validator.ValidateSignature("not-a-jwt", keySet))
}

func TestValidateAccessToken(t *testing.T) {
	validator := NewValidator()

	assert.Equal(t, AccessTokenMissing, validator.ValidateAccessToken(nil))
	assert.Equal(t, AccessTokenMissing, validator.ValidateAccessToken(&ResponseData{}))

	assert.Equal(t, Valid, validator.ValidateAccessToken(&ResponseData{
		AccessToken:  "token",
		ExpiresIn:    3600,
		TimeReceived: time.Now(),
	}))

	assert.Equal(t, AccessTokenExpired, validator.ValidateAccessToken(&ResponseData{
		AccessToken:  "token",
		ExpiresIn:    60,
		TimeReceived: time.Now().Add(-time.Hour),
	}))

	// no expiry supplied means no expiry check
	assert.Equal(t, Valid, validator.ValidateAccessToken(&ResponseData{AccessToken: "token"}))
}

package token

import (
	"github.com/golang-jwt/jwt/v5"

	mcerrors "github.com/openmobileid/mobileconnect/pkg/errors"
)

// DecodeClaims extracts the claim set of a JWT without verifying its
// signature. Signature verification is a separate, later step.
func DecodeClaims(tokenString string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(tokenString, claims)
	if err != nil {
		return nil, mcerrors.Wrap(err, mcerrors.ErrCodeTokenInvalid, "failed to decode token claims")
	}
	return claims, nil
}

// DecodeHeader extracts the (alg, kid) pair from a JWT header.
func DecodeHeader(tokenString string) (alg, kid string, err error) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return "", "", mcerrors.Wrap(err, mcerrors.ErrCodeTokenInvalid, "failed to decode token header")
	}
	if v, ok := token.Header["alg"].(string); ok {
		alg = v
	}
	if v, ok := token.Header["kid"].(string); ok {
		kid = v
	}
	return alg, kid, nil
}

// Nonce returns the nonce claim of an ID token, or "" when absent.
func Nonce(idToken string) (string, error) {
	claims, err := DecodeClaims(idToken)
	if err != nil {
		return "", err
	}
	nonce, _ := claims["nonce"].(string)
	return nonce, nil
}

// stringClaim returns the named claim as a string, "" when absent or of
// another type.
func stringClaim(claims jwt.MapClaims, name string) string {
	v, _ := claims[name].(string)
	return v
}

// audienceMatches reports whether the aud claim, single or multi valued,
// contains clientID.
func audienceMatches(aud interface{}, clientID string) bool {
	switch v := aud.(type) {
	case string:
		return v == clientID
	case []interface{}:
		for _, entry := range v {
			if s, ok := entry.(string); ok && s == clientID {
				return true
			}
		}
	case []string:
		for _, s := range v {
			if s == clientID {
				return true
			}
		}
	}
	return false
}

package token

import (
	"github.com/lestrrat-go/jwx/v2/jwk"

	mcerrors "github.com/openmobileid/mobileconnect/pkg/errors"
)

// KeySet wraps the signing keys fetched from an operator's JWKS endpoint.
type KeySet struct {
	set jwk.Set
}

// ParseKeySet deserializes a JWKS document.
func ParseKeySet(data []byte) (*KeySet, error) {
	set, err := jwk.Parse(data)
	if err != nil {
		return nil, mcerrors.Wrap(err, mcerrors.ErrCodeMalformedResponse, "failed to parse JWKS document")
	}
	return &KeySet{set: set}, nil
}

// Len returns the number of keys in the set.
func (ks *KeySet) Len() int {
	if ks == nil || ks.set == nil {
		return 0
	}
	return ks.set.Len()
}

// MatchKey selects the signing key for a token's (alg, kid) header pair.
// An exact kid match takes precedence; when neither the token nor a key
// carries a kid, the key is matched on alg alone.
func (ks *KeySet) MatchKey(alg, kid string) (jwk.Key, bool) {
	if ks == nil || ks.set == nil {
		return nil, false
	}

	for i := 0; i < ks.set.Len(); i++ {
		key, ok := ks.set.Key(i)
		if !ok {
			continue
		}
		if kid != "" {
			if key.KeyID() == kid {
				return key, true
			}
			continue
		}
		if key.KeyID() == "" && keyAlgorithm(key) == alg {
			return key, true
		}
	}
	return nil, false
}

// RawKey extracts the verification key material in the form the signature
// algorithms expect (*rsa.PublicKey, *ecdsa.PublicKey or []byte).
func RawKey(key jwk.Key) (interface{}, error) {
	var raw interface{}
	if err := key.Raw(&raw); err != nil {
		return nil, mcerrors.Wrap(err, mcerrors.ErrCodeMalformedResponse, "failed to extract raw key material")
	}
	return raw, nil
}

func keyAlgorithm(key jwk.Key) string {
	if a := key.Algorithm(); a != nil {
		return a.String()
	}
	return ""
}

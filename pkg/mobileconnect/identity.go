package mobileconnect

import (
	"encoding/json"
	"strings"

	mctoken "github.com/openmobileid/mobileconnect/pkg/token"
)

// IdentityResponse holds the body returned by an operator's userinfo or
// premium info endpoint. Operators return either a plain JSON document or
// a JWT whose claims carry the attributes; both are normalized into Raw
// JSON here. Signature verification of JWT-form responses is the caller's
// concern; the attributes themselves were fetched over an authenticated
// channel.
type IdentityResponse struct {
	HTTPStatus int
	Raw        json.RawMessage
}

// newIdentityResponse normalizes an identity endpoint body.
func newIdentityResponse(httpStatus int, body []byte) (*IdentityResponse, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed != "" && !strings.HasPrefix(trimmed, "{") && strings.Count(trimmed, ".") == 2 {
		claims, err := mctoken.DecodeClaims(trimmed)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(claims)
		if err != nil {
			return nil, err
		}
		return &IdentityResponse{HTTPStatus: httpStatus, Raw: raw}, nil
	}
	return &IdentityResponse{HTTPStatus: httpStatus, Raw: json.RawMessage(body)}, nil
}

// Decode unmarshals the identity attributes into v.
func (r *IdentityResponse) Decode(v interface{}) error {
	return json.Unmarshal(r.Raw, v)
}

package token

import (
	"encoding/json"
	"time"

	mcerrors "github.com/openmobileid/mobileconnect/pkg/errors"
)

// ErrorResponse is an OAuth2 error body returned by a token endpoint.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	Description      string `json:"description,omitempty"`
	CorrelationID    string `json:"correlation_id,omitempty"`
}

// Message returns the human-readable description, whichever field the
// operator populated.
func (e *ErrorResponse) Message() string {
	if e.ErrorDescription != "" {
		return e.ErrorDescription
	}
	return e.Description
}

// ResponseData carries the token fields of a successful token response.
// TimeReceived anchors the expires_in delta for later expiry checks.
type ResponseData struct {
	AccessToken   string    `json:"access_token,omitempty"`
	TokenType     string    `json:"token_type,omitempty"`
	IDToken       string    `json:"id_token,omitempty"`
	RefreshToken  string    `json:"refresh_token,omitempty"`
	Scope         string    `json:"scope,omitempty"`
	ExpiresIn     int64     `json:"expires_in,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	TimeReceived  time.Time `json:"-"`
}

// Expired reports whether the access token's expires_in window has passed.
// Responses without an expiry never expire.
func (d *ResponseData) Expired(now time.Time) bool {
	if d.ExpiresIn <= 0 || d.TimeReceived.IsZero() {
		return false
	}
	return now.After(d.TimeReceived.Add(time.Duration(d.ExpiresIn) * time.Second))
}

// Response is the outcome of a token request: either token fields or an
// error body, never both.
type Response struct {
	HTTPStatus       int
	ResponseData     *ResponseData
	Error            *ErrorResponse
	ValidationResult ValidationResult
}

// ParseResponse deserializes a token endpoint response body.
func ParseResponse(httpStatus int, body []byte, now time.Time) (*Response, error) {
	var combined struct {
		AccessToken      string `json:"access_token"`
		TokenType        string `json:"token_type"`
		IDToken          string `json:"id_token"`
		RefreshToken     string `json:"refresh_token"`
		Scope            string `json:"scope"`
		ExpiresIn        int64  `json:"expires_in"`
		CorrelationID    string `json:"correlation_id"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		Description      string `json:"description"`
	}
	if err := json.Unmarshal(body, &combined); err != nil {
		return nil, mcerrors.Wrap(err, mcerrors.ErrCodeMalformedResponse, "failed to parse token response")
	}

	response := &Response{HTTPStatus: httpStatus}
	if combined.Error != "" {
		response.Error = &ErrorResponse{
			Error:            combined.Error,
			ErrorDescription: combined.ErrorDescription,
			Description:      combined.Description,
			CorrelationID:    combined.CorrelationID,
		}
		return response, nil
	}

	response.ResponseData = &ResponseData{
		AccessToken:   combined.AccessToken,
		TokenType:     combined.TokenType,
		IDToken:       combined.IDToken,
		RefreshToken:  combined.RefreshToken,
		Scope:         combined.Scope,
		ExpiresIn:     combined.ExpiresIn,
		CorrelationID: combined.CorrelationID,
		TimeReceived:  now,
	}
	return response, nil
}

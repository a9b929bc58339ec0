package discovery

import (
	"encoding/json"
	"net/http"
	"time"

	mcerrors "github.com/openmobileid/mobileconnect/pkg/errors"
)

// TTL clamp bounds for cached discovery results. A server-supplied ttl
// below MinTTL clamps up, above MaxTTL clamps down; an absent ttl defaults
// to MinTTL.
const (
	MinTTL = 5 * time.Minute
	MaxTTL = 180 * 24 * time.Hour
)

// OperatorUrls holds the operator endpoints resolved from a discovery
// response. Provider metadata endpoints take precedence when attached.
type OperatorUrls struct {
	AuthorizationURL     string
	RequestTokenURL      string
	RefreshTokenURL      string
	RevokeTokenURL       string
	UserInfoURL          string
	PremiumInfoURL       string
	ProviderMetadataURL  string
	JWKSURL              string
	OperatorSelectionURL string
}

// OverrideWith replaces endpoints with those the provider metadata
// advertises, where present.
func (u *OperatorUrls) OverrideWith(md *ProviderMetadata) {
	if md == nil {
		return
	}
	if md.AuthorizationEndpoint != "" {
		u.AuthorizationURL = md.AuthorizationEndpoint
	}
	if md.TokenEndpoint != "" {
		u.RequestTokenURL = md.TokenEndpoint
		u.RefreshTokenURL = md.TokenEndpoint
	}
	if md.RevocationEndpoint != "" {
		u.RevokeTokenURL = md.RevocationEndpoint
	}
	if md.UserinfoEndpoint != "" {
		u.UserInfoURL = md.UserinfoEndpoint
	}
	if md.PremiumInfoEndpoint != "" {
		u.PremiumInfoURL = md.PremiumInfoEndpoint
	}
	if md.JWKSURI != "" {
		u.JWKSURL = md.JWKSURI
	}
}

func operatorUrlsFromResponse(r *Response) OperatorUrls {
	return OperatorUrls{
		AuthorizationURL:     r.linkFor(RelAuthorization),
		RequestTokenURL:      r.linkFor(RelToken),
		RefreshTokenURL:      r.linkFor(RelTokenRefresh),
		RevokeTokenURL:       r.linkFor(RelTokenRevoke),
		UserInfoURL:          r.linkFor(RelUserInfo),
		PremiumInfoURL:       r.linkFor(RelPremiumInfo),
		ProviderMetadataURL:  r.linkFor(RelProviderMetadata),
		JWKSURL:              r.linkFor(RelJWKS),
		OperatorSelectionURL: r.linkFor(RelOperatorSelection),
	}
}

// ErrorInfo describes an error body carried by a discovery response,
// annotated with the originating request URI for diagnostics.
type ErrorInfo struct {
	Error       string `json:"error"`
	Description string `json:"description,omitempty"`
	RequestURI  string `json:"request_uri,omitempty"`
}

// Result is the outcome of one discovery call: the raw payload plus the
// derived operator endpoints, expiry instant and correlation id.
type Result struct {
	HTTPStatus       int
	TTL              time.Time
	Headers          http.Header
	ErrorInfo        *ErrorInfo
	ResponseData     *Response
	OperatorUrls     OperatorUrls
	ProviderMetadata *ProviderMetadata
	ClientName       string
	CorrelationID    string

	// Cached marks a result served from the discovery cache, possibly
	// stale, rather than from a live network call.
	Cached bool
}

// NewResult parses a discovery response body into a Result. The ttl clamp
// is applied at construction so a cached Result always carries a bounded
// expiry instant.
func NewResult(httpStatus int, headers http.Header, body []byte, now time.Time) (*Result, error) {
	var response Response
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, mcerrors.Wrap(err, mcerrors.ErrCodeMalformedResponse, "failed to parse discovery response")
	}

	result := &Result{
		HTTPStatus:    httpStatus,
		TTL:           ComputeTTL(response.TTL, now),
		Headers:       headers,
		ResponseData:  &response,
		OperatorUrls:  operatorUrlsFromResponse(&response),
		CorrelationID: response.CorrelationID,
	}
	if response.Response != nil {
		result.ClientName = response.Response.ClientName
	}
	if response.Error != "" {
		result.ErrorInfo = &ErrorInfo{
			Error:       response.Error,
			Description: response.Description,
		}
	}
	return result, nil
}

// ComputeTTL converts a server-supplied ttl delta in seconds into an
// absolute expiry instant clamped into [now+MinTTL, now+MaxTTL].
func ComputeTTL(ttlSeconds int64, now time.Time) time.Time {
	ttl := time.Duration(ttlSeconds) * time.Second
	if ttl < MinTTL {
		ttl = MinTTL
	} else if ttl > MaxTTL {
		ttl = MaxTTL
	}
	return now.Add(ttl)
}

// Expired reports whether the result's ttl has passed.
func (r *Result) Expired(now time.Time) bool {
	return now.After(r.TTL)
}

// SetProviderMetadata attaches the provider's metadata document, overriding
// the discovery-supplied endpoints in place.
func (r *Result) SetProviderMetadata(md *ProviderMetadata) {
	r.ProviderMetadata = md
	r.OperatorUrls.OverrideWith(md)
}

// AttachRequestURI recomputes the error info with the originating request
// URI attached, for diagnostics.
func (r *Result) AttachRequestURI(requestURI string) {
	if r.ErrorInfo == nil {
		return
	}
	r.ErrorInfo = &ErrorInfo{
		Error:       r.ErrorInfo.Error,
		Description: r.ErrorInfo.Description,
		RequestURI:  requestURI,
	}
}

// ClientID returns the operator-issued client id, or "".
func (r *Result) ClientID() string {
	if r.ResponseData != nil && r.ResponseData.Response != nil {
		return r.ResponseData.Response.ClientID
	}
	return ""
}

// ClientSecret returns the operator-issued client secret, or "".
func (r *Result) ClientSecret() string {
	if r.ResponseData != nil && r.ResponseData.Response != nil {
		return r.ResponseData.Response.ClientSecret
	}
	return ""
}

// SubscriberID returns the encrypted subscriber id, or "".
func (r *Result) SubscriberID() string {
	if r.ResponseData == nil {
		return ""
	}
	if r.ResponseData.SubscriberID != "" {
		return r.ResponseData.SubscriberID
	}
	if r.ResponseData.Response != nil {
		return r.ResponseData.Response.SubscriberID
	}
	return ""
}

// Usable reports whether the result resolved the operator's token
// endpoints, i.e. whether an authentication flow can proceed from it.
func (r *Result) Usable() bool {
	return r != nil && r.OperatorUrls.RequestTokenURL != "" && r.OperatorUrls.AuthorizationURL != ""
}

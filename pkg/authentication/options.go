package authentication

import (
	"github.com/openmobileid/mobileconnect/pkg/versions"
)

// Default request parameters applied when the caller leaves them unset.
const (
	DefaultScope     = versions.ScopeOpenID
	DefaultAcrValues = "2"
	DefaultDisplay   = "page"
	DefaultMaxAge    = int64(3600)

	// ResponseType is fixed: only the authorization code flow is used.
	ResponseType = "code"

	// HeadlessPrompt is forced onto headless authorize requests so the
	// operator pushes the interaction to the subscriber's device.
	HeadlessPrompt = "mobile"
)

// Login hint prefixes defined by the protocol.
const (
	LoginHintPrefixMSISDN          = "MSISDN:"
	LoginHintPrefixEncryptedMSISDN = "ENCR_MSISDN:"
	LoginHintPrefixPCR             = "PCR:"
)

// Options carries the caller-supplied parameters of one authentication
// request. It is an immutable value: defaults are injected by copying,
// never by mutating the caller's instance.
type Options struct {
	Scope          string
	Context        string
	BindingMessage string
	ClientName     string
	AcrValues      string
	Display        string
	Prompt         string
	UILocales      string
	ClaimsLocales  string
	IDTokenHint    string
	LoginHint      string
	LoginHintToken string
	DTBS           string
	ClaimsJSON     string

	// MaxAge is the maximum authentication age in seconds.
	MaxAge int64

	// UseCorrelationID threads a correlation id through the token calls.
	UseCorrelationID bool
}

// withDefaults returns a copy with unset fields defaulted.
func (o Options) withDefaults() Options {
	if o.Scope == "" {
		o.Scope = DefaultScope
	}
	if o.AcrValues == "" {
		o.AcrValues = DefaultAcrValues
	}
	if o.Display == "" {
		o.Display = DefaultDisplay
	}
	if o.MaxAge == 0 {
		o.MaxAge = DefaultMaxAge
	}
	return o
}

// usesAuthorize reports whether the richer, operator-branded "authorize"
// variant applies rather than the bare OIDC "authenticate" variant: either
// a context value was supplied or an authorization scope was requested.
func (o Options) usesAuthorize() bool {
	return o.Context != "" || versions.ContainsScope(o.Scope, versions.ScopeAuthz)
}

// loginHint computes the login_hint value: an explicit hint wins, else one
// is derived from the encrypted subscriber id.
func (o Options) loginHint(encryptedMSISDN string) string {
	if o.LoginHint != "" {
		return o.LoginHint
	}
	if encryptedMSISDN != "" {
		return LoginHintPrefixEncryptedMSISDN + encryptedMSISDN
	}
	return ""
}

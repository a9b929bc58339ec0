package mobileconnect

import (
	"time"

	mcerrors "github.com/openmobileid/mobileconnect/pkg/errors"
)

// Config carries the relying party's registration with the discovery
// service. It is an immutable value: build it once and hand it to New.
type Config struct {
	// ClientID and ClientSecret are the credentials issued by the
	// discovery service, used until discovery hands out operator-issued
	// credentials.
	ClientID     string
	ClientSecret string

	// DiscoveryURL is the discovery service endpoint.
	DiscoveryURL string

	// RedirectURL is the relying party's callback, registered with the
	// discovery service and echoed on every authorization redirect.
	RedirectURL string

	// CacheResponsesWithSessionID enables the session-keyed web flow:
	// discovery results are stored under a generated opaque session id so
	// a later, unrelated request can resume without re-running discovery.
	CacheResponsesWithSessionID bool

	// Timeout applies to every outbound HTTP call. Zero falls back to the
	// transport default.
	Timeout time.Duration

	// MaxCacheSize bounds the session cache when positive; zero leaves it
	// unbounded.
	MaxCacheSize int

	// UseCorrelationID threads a generated correlation id through the
	// discovery and token calls for cross-session substitution detection.
	UseCorrelationID bool
}

func (c Config) validate() error {
	if c.ClientID == "" {
		return mcerrors.NewRequiredArgMissing("clientID")
	}
	if c.ClientSecret == "" {
		return mcerrors.NewRequiredArgMissing("clientSecret")
	}
	if c.DiscoveryURL == "" {
		return mcerrors.NewRequiredArgMissing("discoveryURL")
	}
	if c.RedirectURL == "" {
		return mcerrors.NewRequiredArgMissing("redirectURL")
	}
	return nil
}

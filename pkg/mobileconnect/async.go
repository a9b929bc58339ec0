package mobileconnect

import (
	"context"
	"net/http"

	"github.com/openmobileid/mobileconnect/pkg/authentication"
	"github.com/openmobileid/mobileconnect/pkg/discovery"
)

// Async variants hand the corresponding blocking call to a goroutine and
// return a single-result channel. They add no ordering guarantees; each is
// purely a convenience for callers that want to await the result.

func asyncStatus(call func() *Status) <-chan *Status {
	ch := make(chan *Status, 1)
	go func() {
		ch <- call()
		close(ch)
	}()
	return ch
}

// AttemptDiscoveryAsync runs AttemptDiscovery on a worker goroutine.
func (m *MobileConnect) AttemptDiscoveryAsync(ctx context.Context, msisdn, mcc, mnc string, cookies []*http.Cookie, options discovery.Options) <-chan *Status {
	return asyncStatus(func() *Status {
		return m.AttemptDiscovery(ctx, msisdn, mcc, mnc, cookies, options)
	})
}

// RequestTokenAsync runs RequestToken on a worker goroutine.
func (m *MobileConnect) RequestTokenAsync(ctx context.Context, result *discovery.Result, redirectedURL, expectedState, expectedNonce string, options authentication.Options, requestedVersion string) <-chan *Status {
	return asyncStatus(func() *Status {
		return m.RequestToken(ctx, result, redirectedURL, expectedState, expectedNonce, options, requestedVersion)
	})
}

// RequestHeadlessAuthenticationAsync runs the long-blocking headless flow
// on a worker goroutine; this is the variant latency-sensitive callers
// should use.
func (m *MobileConnect) RequestHeadlessAuthenticationAsync(ctx context.Context, result *discovery.Result, encryptedMSISDN, state, nonce string, options authentication.Options, requestedVersion string) <-chan *Status {
	return asyncStatus(func() *Status {
		return m.RequestHeadlessAuthentication(ctx, result, encryptedMSISDN, state, nonce, options, requestedVersion)
	})
}

// HandleURLRedirectAsync runs HandleURLRedirect on a worker goroutine.
func (m *MobileConnect) HandleURLRedirectAsync(ctx context.Context, redirectedURL string, result *discovery.Result, expectedState, expectedNonce string, options authentication.Options, requestedVersion string) <-chan *Status {
	return asyncStatus(func() *Status {
		return m.HandleURLRedirect(ctx, redirectedURL, result, expectedState, expectedNonce, options, requestedVersion)
	})
}

// RequestUserInfoAsync runs RequestUserInfo on a worker goroutine.
func (m *MobileConnect) RequestUserInfoAsync(ctx context.Context, result *discovery.Result, accessToken string) <-chan *Status {
	return asyncStatus(func() *Status {
		return m.RequestUserInfo(ctx, result, accessToken)
	})
}

// RequestIdentityAsync runs RequestIdentity on a worker goroutine.
func (m *MobileConnect) RequestIdentityAsync(ctx context.Context, result *discovery.Result, accessToken string) <-chan *Status {
	return asyncStatus(func() *Status {
		return m.RequestIdentity(ctx, result, accessToken)
	})
}

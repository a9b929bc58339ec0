package mobileconnect

import (
	"context"

	"github.com/openmobileid/mobileconnect/pkg/authentication"
	mcerrors "github.com/openmobileid/mobileconnect/pkg/errors"
)

// Session-keyed variants of the core flow, for web callers that cannot
// hold in-memory state between the request that issues the authorization
// URL and the request that handles the callback. The discovery result,
// state and nonce are stored under the opaque sdkSession id that
// AttemptDiscovery generated; each variant resumes from that entry.

func (m *MobileConnect) sessionEntry(sdkSession string) (*SessionEntry, *Status) {
	if !m.config.CacheResponsesWithSessionID {
		return nil, errorStatusFrom(mcerrors.New(mcerrors.ErrCodeCacheDisabled,
			"session caching is not enabled in the configuration"))
	}
	entry, ok := m.sessionCache.Get(sdkSession)
	if !ok {
		return nil, errorStatusFrom(mcerrors.New(mcerrors.ErrCodeSDKSessionNotFound,
			"no session is stored under the given sdk session id"))
	}
	return entry.Value, nil
}

// StartAuthenticationBySession builds the authorization URL for the
// discovery result stored under sdkSession and records the issued state
// and nonce in the session for the later token exchange.
func (m *MobileConnect) StartAuthenticationBySession(sdkSession, encryptedMSISDN string, options authentication.Options, requestedVersion string) *Status {
	session, errStatus := m.sessionEntry(sdkSession)
	if errStatus != nil {
		return errStatus
	}

	if encryptedMSISDN == "" {
		encryptedMSISDN = session.EncryptedMSISDN
	}

	status := m.StartAuthentication(session.Result, encryptedMSISDN, "", "", options, requestedVersion)
	if status.Type != StatusAuthentication {
		return status
	}

	updated := &SessionEntry{
		State:           status.State,
		Nonce:           status.Nonce,
		Result:          session.Result,
		Scope:           options.Scope,
		Version:         requestedVersion,
		EncryptedMSISDN: encryptedMSISDN,
	}
	m.sessionCache.AddUntil(sdkSession, updated, session.Result.TTL)

	status.SDKSession = sdkSession
	return status
}

// RequestTokenBySession exchanges the callback URL for tokens using the
// state and nonce recorded in the session.
func (m *MobileConnect) RequestTokenBySession(ctx context.Context, sdkSession, redirectedURL string) *Status {
	session, errStatus := m.sessionEntry(sdkSession)
	if errStatus != nil {
		return errStatus
	}

	options := authentication.Options{Scope: session.Scope}
	return m.RequestToken(ctx, session.Result, redirectedURL, session.State, session.Nonce,
		options, session.Version)
}

// RequestUserInfoBySession fetches userinfo attributes using the
// discovery result stored in the session.
func (m *MobileConnect) RequestUserInfoBySession(ctx context.Context, sdkSession, accessToken string) *Status {
	session, errStatus := m.sessionEntry(sdkSession)
	if errStatus != nil {
		return errStatus
	}
	return m.RequestUserInfo(ctx, session.Result, accessToken)
}

// RequestIdentityBySession fetches premium identity attributes using the
// discovery result stored in the session.
func (m *MobileConnect) RequestIdentityBySession(ctx context.Context, sdkSession, accessToken string) *Status {
	session, errStatus := m.sessionEntry(sdkSession)
	if errStatus != nil {
		return errStatus
	}
	return m.RequestIdentity(ctx, session.Result, accessToken)
}

// HandleURLRedirectBySession dispatches a callback URL using the session's
// stored state.
func (m *MobileConnect) HandleURLRedirectBySession(ctx context.Context, sdkSession, redirectedURL string) *Status {
	session, errStatus := m.sessionEntry(sdkSession)
	if errStatus != nil {
		return errStatus
	}

	options := authentication.Options{Scope: session.Scope}
	return m.HandleURLRedirect(ctx, redirectedURL, session.Result, session.State, session.Nonce,
		options, session.Version)
}

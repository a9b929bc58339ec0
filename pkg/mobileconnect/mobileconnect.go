// Package mobileconnect is the entry point of the SDK: it sequences
// discovery, authentication, token exchange, validation and identity
// retrieval, and owns the state, nonce and correlation-id handling in
// between. Every public method returns a Status value; internal failures
// never escape as Go errors past this boundary.
package mobileconnect

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/openmobileid/mobileconnect/pkg/authentication"
	"github.com/openmobileid/mobileconnect/pkg/cache"
	"github.com/openmobileid/mobileconnect/pkg/discovery"
	mcerrors "github.com/openmobileid/mobileconnect/pkg/errors"
	"github.com/openmobileid/mobileconnect/pkg/logging"
	mctoken "github.com/openmobileid/mobileconnect/pkg/token"
	"github.com/openmobileid/mobileconnect/pkg/transport"
	"github.com/openmobileid/mobileconnect/pkg/versions"
)

// jwksTTL bounds how long a fetched JWKS document is reused before a
// re-fetch is attempted.
const jwksTTL = time.Hour

// MobileConnect orchestrates one logical authentication session per call
// chain. The struct itself is stateless across calls; all cross-request
// state lives in the session cache, keyed by tokens the caller threads
// through.
type MobileConnect struct {
	config         Config
	rest           *transport.RestClient
	discovery      *discovery.Service
	authentication *authentication.Service
	validator      *mctoken.Validator
	sessionCache   *cache.Cache[*SessionEntry]
	jwksCache      *cache.Cache[*mctoken.KeySet]
	logger         zerolog.Logger
}

// SessionEntry is the state stored between the authorization redirect and
// the token exchange when the session-keyed web flow is enabled.
type SessionEntry struct {
	State           string
	Nonce           string
	Result          *discovery.Result
	Scope           string
	Version         string
	EncryptedMSISDN string
}

// New builds the orchestrator. Missing required configuration is the one
// failure reported as a Go error; everything later surfaces as a Status.
func New(config Config) (*MobileConnect, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	rest := transport.NewRestClient(config.Timeout)
	sessionOpts := []cache.Option{}
	if config.MaxCacheSize > 0 {
		sessionOpts = append(sessionOpts, cache.WithMaxSize(config.MaxCacheSize))
	}

	return &MobileConnect{
		config:         config,
		rest:           rest,
		discovery:      discovery.NewService(rest),
		authentication: authentication.NewService(rest),
		validator:      mctoken.NewValidator(),
		sessionCache:   cache.New[*SessionEntry](sessionOpts...),
		jwksCache:      cache.New[*mctoken.KeySet](),
		logger:         logging.GetLogger("mobileconnect"),
	}, nil
}

// GenerateUniqueString returns an opaque token suitable for state, nonce
// and session ids.
func GenerateUniqueString() string {
	return uuid.NewString()
}

// AttemptDiscovery resolves the subscriber's operator. The returned status
// is one of Error (discovery reported an error body), OperatorSelection
// (the end user must pick an operator at status.URL), or
// StartAuthentication (operator resolved; proceed with the carried
// discovery result). With session caching enabled, a StartAuthentication
// status also carries the SDKSession id the result was stored under.
func (m *MobileConnect) AttemptDiscovery(ctx context.Context, msisdn, mcc, mnc string, cookies []*http.Cookie, options discovery.Options) *Status {
	options.MSISDN = msisdn
	options.IdentifiedMCC = mcc
	options.IdentifiedMNC = mnc
	if m.config.UseCorrelationID {
		options.UseCorrelationID = true
	}

	result, err := m.discovery.StartAutomatedDiscovery(ctx,
		m.config.ClientID, m.config.ClientSecret, m.config.DiscoveryURL, m.config.RedirectURL,
		options, cookies)
	if err != nil {
		return errorStatusFrom(err)
	}
	return m.discoveryStatus(result, result.SubscriberID())
}

// AttemptDiscoveryAfterOperatorSelection finishes discovery from the
// operator-selection callback URL. When the callback carries no operator
// codes the flow must restart from discovery.
func (m *MobileConnect) AttemptDiscoveryAfterOperatorSelection(ctx context.Context, redirectedURL string) *Status {
	parsed, err := discovery.ParseRedirect(redirectedURL)
	if err != nil {
		return errorStatusFrom(err)
	}
	if parsed.SelectedMCC == "" || parsed.SelectedMNC == "" {
		return startDiscoveryStatus("operator selection returned no operator codes")
	}

	result, err := m.discovery.CompleteSelectedOperatorDiscovery(ctx,
		m.config.ClientID, m.config.ClientSecret, m.config.DiscoveryURL, m.config.RedirectURL,
		parsed.SelectedMCC, parsed.SelectedMNC)
	if err != nil {
		return errorStatusFrom(err)
	}

	// The selection callback may carry the encrypted subscriber id; keep it
	// so the later authentication request can use it as a login hint.
	encryptedMSISDN := parsed.EncryptedMSISDN
	if encryptedMSISDN == "" {
		encryptedMSISDN = result.SubscriberID()
	}
	return m.discoveryStatus(result, encryptedMSISDN)
}

func (m *MobileConnect) discoveryStatus(result *discovery.Result, encryptedMSISDN string) *Status {
	if result.ErrorInfo != nil && !result.Cached {
		return ErrorStatus(mcerrors.ErrorCode(result.ErrorInfo.Error), result.ErrorInfo.Description)
	}
	if selectionURL := discovery.OperatorSelectionURL(result); selectionURL != "" {
		return operatorSelectionStatus(selectionURL)
	}

	sdkSession := ""
	if m.config.CacheResponsesWithSessionID {
		sdkSession = GenerateUniqueString()
		m.sessionCache.AddUntil(sdkSession, &SessionEntry{
			Result:          result,
			EncryptedMSISDN: encryptedMSISDN,
		}, result.TTL)
	}

	status := startAuthenticationStatus(result, sdkSession)
	status.EncryptedMSISDN = encryptedMSISDN
	return status
}

// StartAuthentication builds the authorization URL for a resolved
// operator. State and nonce are generated when not supplied; the returned
// status carries them and the caller must retain both for the later token
// exchange.
func (m *MobileConnect) StartAuthentication(result *discovery.Result, encryptedMSISDN, state, nonce string, options authentication.Options, requestedVersion string) *Status {
	if !result.Usable() {
		return startDiscoveryStatus("discovery result is missing operator endpoints")
	}

	if state == "" {
		state = GenerateUniqueString()
	}
	if nonce == "" {
		nonce = GenerateUniqueString()
	}

	version, err := m.negotiateVersion(requestedVersion, options.Scope, result)
	if err != nil {
		return errorStatusFrom(err)
	}

	clientID, _ := m.credentials(result)
	authURL, err := m.authentication.StartAuthentication(clientID, m.correlationID(result),
		result.OperatorUrls.AuthorizationURL, m.config.RedirectURL,
		state, nonce, encryptedMSISDN, options, version)
	if err != nil {
		return errorStatusFrom(err)
	}
	return authenticationStatus(authURL, state, nonce, "")
}

// RequestToken exchanges the authorization redirect for tokens and
// validates the result. The state carried by the redirect must match
// expectedState exactly; a mismatch is the CSRF signal and fails closed
// before any network call. The ID token's nonce claim must match
// expectedNonce before any further validation.
func (m *MobileConnect) RequestToken(ctx context.Context, result *discovery.Result, redirectedURL, expectedState, expectedNonce string, options authentication.Options, requestedVersion string) *Status {
	if !result.Usable() {
		return startDiscoveryStatus("discovery result is missing operator endpoints")
	}

	redirect, err := url.Parse(redirectedURL)
	if err != nil {
		return errorStatusFrom(mcerrors.Wrap(err, mcerrors.ErrCodeMalformedResponse, "invalid redirect url"))
	}
	query := redirect.Query()

	if errCode := query.Get("error"); errCode != "" {
		return ErrorStatus(mcerrors.ErrorCode(errCode), redirectErrorDescription(query))
	}
	// The CSRF check fails closed: without an expected state there is
	// nothing to compare the redirect against, so no exchange may happen.
	if expectedState == "" {
		return errorStatusFrom(mcerrors.NewInvalidState("no expected state was issued for this flow"))
	}
	if query.Get("state") != expectedState {
		return errorStatusFrom(mcerrors.NewInvalidState("redirect state does not match the one issued"))
	}
	code := query.Get("code")
	if code == "" {
		return ErrorStatus(mcerrors.ErrCodeMalformedResponse, "redirect carried no authorization code")
	}

	ctx = m.withCorrelation(ctx, result)
	clientID, clientSecret := m.credentials(result)
	response, err := m.authentication.RequestToken(ctx, clientID, clientSecret,
		result.OperatorUrls.RequestTokenURL, m.config.RedirectURL, code, m.correlationID(result))
	if err != nil {
		return errorStatusFrom(err)
	}
	return m.completeTokenResponse(ctx, result, response, clientID, expectedNonce, options, requestedVersion)
}

// RequestHeadlessAuthentication runs the whole authorize-and-exchange
// sequence without user interaction, then validates the result. It blocks
// for as long as the subscriber's device takes to respond.
func (m *MobileConnect) RequestHeadlessAuthentication(ctx context.Context, result *discovery.Result, encryptedMSISDN, state, nonce string, options authentication.Options, requestedVersion string) *Status {
	if !result.Usable() {
		return startDiscoveryStatus("discovery result is missing operator endpoints")
	}

	if state == "" {
		state = GenerateUniqueString()
	}
	if nonce == "" {
		nonce = GenerateUniqueString()
	}

	version, err := m.negotiateVersion(requestedVersion, options.Scope, result)
	if err != nil {
		return errorStatusFrom(err)
	}

	ctx = m.withCorrelation(ctx, result)
	clientID, clientSecret := m.credentials(result)
	response, err := m.authentication.RequestHeadlessAuthentication(ctx, clientID, clientSecret,
		m.correlationID(result), result.OperatorUrls.AuthorizationURL,
		result.OperatorUrls.RequestTokenURL, m.config.RedirectURL,
		state, nonce, encryptedMSISDN, options, version)
	if err != nil {
		return errorStatusFrom(err)
	}
	return m.completeTokenResponse(ctx, result, response, clientID, nonce, options, requestedVersion)
}

// completeTokenResponse applies the post-exchange checks shared by every
// token-producing path: correlation id consistency, the nonce replay check,
// ID token claims+signature validation and the access token check.
func (m *MobileConnect) completeTokenResponse(ctx context.Context, result *discovery.Result, response *mctoken.Response, clientID, expectedNonce string, options authentication.Options, requestedVersion string) *Status {
	sent := m.correlationID(result)

	if response.Error != nil {
		if sent != "" && response.Error.CorrelationID != "" && response.Error.CorrelationID != sent {
			return errorStatusFrom(mcerrors.NewInvalidCorrelationID(
				"token error response correlation id does not match the one sent"))
		}
		return ErrorStatus(mcerrors.ErrorCode(response.Error.Error), response.Error.Message())
	}

	data := response.ResponseData
	if sent != "" && data.CorrelationID != "" && data.CorrelationID != sent {
		return errorStatusFrom(mcerrors.NewInvalidCorrelationID(
			"token response correlation id does not match the one sent"))
	}

	// The replay check runs before any other ID token validation.
	if expectedNonce != "" && data.IDToken != "" {
		nonce, err := mctoken.Nonce(data.IDToken)
		if err != nil {
			return ErrorStatus(mcerrors.ErrCodeTokenInvalid, "id token claims could not be decoded")
		}
		if nonce != expectedNonce {
			return errorStatusFrom(mcerrors.NewInvalidNonce("id token nonce does not match the one issued"))
		}
	}

	version, keySet, status := m.validationInputs(ctx, result, options.Scope, requestedVersion)
	if status != nil {
		return status
	}

	maxAge := time.Duration(options.MaxAge) * time.Second
	if options.MaxAge == 0 {
		maxAge = time.Duration(authentication.DefaultMaxAge) * time.Second
	}
	validation := m.validator.ValidateIDToken(data.IDToken, clientID, m.issuer(result),
		expectedNonce, maxAge, keySet, version)
	if !validation.IsValid() {
		return ErrorStatus(validationErrorCode(validation), "id token validation failed: "+string(validation))
	}
	if access := m.validator.ValidateAccessToken(data); !access.IsValid() {
		return ErrorStatus(validationErrorCode(access), "access token validation failed: "+string(access))
	}

	response.ValidationResult = validation
	return completeStatus(response)
}

// validationInputs resolves the effective version and key set for ID token
// validation. The validator's legacy skip path is only taken for operators
// that never advertised a JWKS endpoint and whose supported versions stay
// below the revision that made signature validation mandatory; an operator
// on a newer revision without a reachable key set fails validation instead.
func (m *MobileConnect) validationInputs(ctx context.Context, result *discovery.Result, scope, requestedVersion string) (string, *mctoken.KeySet, *Status) {
	jwksURL := result.OperatorUrls.JWKSURL

	var keySet *mctoken.KeySet
	if jwksURL != "" {
		ks, err := m.keySet(ctx, jwksURL)
		if err != nil {
			return "", nil, errorStatusFrom(err)
		}
		keySet = ks
	}

	if requestedVersion == "" && keySet == nil {
		supported := result.ProviderMetadata.SupportedVersions()
		if !supported.IsVersionSupported(versions.VersionMC12) {
			return "", nil, nil
		}
	}

	if scope == "" {
		scope = versions.ScopeOpenID
	}
	version, err := versions.GetCurrentVersion(requestedVersion, scope, result.ProviderMetadata.Versions())
	if err != nil {
		return "", nil, errorStatusFrom(err)
	}
	return version, keySet, nil
}

// keySet fetches (and caches, keyed by URL) the operator's JWKS document.
// A stale cached document is served when a re-fetch fails.
func (m *MobileConnect) keySet(ctx context.Context, jwksURL string) (*mctoken.KeySet, error) {
	if entry, ok := m.jwksCache.Get(jwksURL); ok && !entry.Expired(time.Now()) {
		return entry.Value, nil
	}

	resp, err := m.rest.Get(ctx, jwksURL, nil, nil, nil)
	if err == nil && resp.StatusCode != http.StatusOK {
		err = mcerrors.Newf(mcerrors.ErrCodeTransportFailure,
			"JWKS request returned status %d", resp.StatusCode)
	}

	var keySet *mctoken.KeySet
	if err == nil {
		keySet, err = mctoken.ParseKeySet(resp.Body)
	}
	if err != nil {
		if entry, ok := m.jwksCache.Get(jwksURL); ok {
			m.logger.Warn().Err(err).Str("url", jwksURL).Msg("serving stale JWKS document")
			return entry.Value, nil
		}
		return nil, err
	}

	m.jwksCache.Add(jwksURL, keySet, jwksTTL)
	return keySet, nil
}

// HandleURLRedirect dispatches a callback URL on its shape: a code routes
// to token exchange, operator codes route to discovery completion, an
// error pair is surfaced as an Error status.
func (m *MobileConnect) HandleURLRedirect(ctx context.Context, redirectedURL string, result *discovery.Result, expectedState, expectedNonce string, options authentication.Options, requestedVersion string) *Status {
	redirect, err := url.Parse(redirectedURL)
	if err != nil {
		return errorStatusFrom(mcerrors.Wrap(err, mcerrors.ErrCodeMalformedResponse, "invalid redirect url"))
	}
	query := redirect.Query()

	switch {
	case query.Get("code") != "":
		return m.RequestToken(ctx, result, redirectedURL, expectedState, expectedNonce, options, requestedVersion)
	case query.Get("mcc_mnc") != "":
		return m.AttemptDiscoveryAfterOperatorSelection(ctx, redirectedURL)
	case query.Get("error") != "":
		return ErrorStatus(mcerrors.ErrorCode(query.Get("error")), redirectErrorDescription(query))
	default:
		return ErrorStatus(mcerrors.ErrCodeMalformedResponse, "redirect url carried no recognized parameters")
	}
}

// RequestUserInfo fetches the subscriber's userinfo attributes. An
// operator without a userinfo endpoint yields not_supported, not a
// transport error.
func (m *MobileConnect) RequestUserInfo(ctx context.Context, result *discovery.Result, accessToken string) *Status {
	return m.requestAttributes(ctx, result.OperatorUrls.UserInfoURL, "userinfo", accessToken)
}

// RequestIdentity fetches the subscriber's premium identity attributes.
func (m *MobileConnect) RequestIdentity(ctx context.Context, result *discovery.Result, accessToken string) *Status {
	return m.requestAttributes(ctx, result.OperatorUrls.PremiumInfoURL, "identity", accessToken)
}

func (m *MobileConnect) requestAttributes(ctx context.Context, endpointURL, kind, accessToken string) *Status {
	if endpointURL == "" {
		return errorStatusFrom(mcerrors.NewNotSupported("operator does not offer a " + kind + " endpoint"))
	}
	if accessToken == "" {
		return errorStatusFrom(mcerrors.NewRequiredArgMissing("accessToken"))
	}

	headers := map[string]string{"Authorization": "Bearer " + accessToken}
	resp, err := m.rest.Get(ctx, endpointURL, nil, headers, nil)
	if err != nil {
		return errorStatusFrom(err)
	}
	if resp.StatusCode != http.StatusOK {
		return ErrorStatus(mcerrors.ErrCodeTransportFailure,
			kind+" request was rejected by the operator")
	}

	identity, err := newIdentityResponse(resp.StatusCode, resp.Body)
	if err != nil {
		return errorStatusFrom(err)
	}
	return userInfoStatus(identity)
}

// RefreshToken exchanges a refresh token for a fresh token response.
func (m *MobileConnect) RefreshToken(ctx context.Context, result *discovery.Result, refreshToken string) *Status {
	refreshURL := result.OperatorUrls.RefreshTokenURL
	if refreshURL == "" {
		refreshURL = result.OperatorUrls.RequestTokenURL
	}

	ctx = m.withCorrelation(ctx, result)
	clientID, clientSecret := m.credentials(result)
	response, err := m.authentication.RefreshToken(ctx, clientID, clientSecret, refreshURL, refreshToken)
	if err != nil {
		return errorStatusFrom(err)
	}
	if response.Error != nil {
		return ErrorStatus(mcerrors.ErrorCode(response.Error.Error), response.Error.Message())
	}
	if access := m.validator.ValidateAccessToken(response.ResponseData); !access.IsValid() {
		return ErrorStatus(validationErrorCode(access), "access token validation failed: "+string(access))
	}
	return completeStatus(response)
}

// RevokeToken revokes an access or refresh token. The outcome is carried
// on the returned Complete status.
func (m *MobileConnect) RevokeToken(ctx context.Context, result *discovery.Result, revokeToken, tokenTypeHint string) *Status {
	revokeURL := result.OperatorUrls.RevokeTokenURL
	if revokeURL == "" {
		return errorStatusFrom(mcerrors.NewNotSupported("operator does not offer a revocation endpoint"))
	}

	ctx = m.withCorrelation(ctx, result)
	clientID, clientSecret := m.credentials(result)
	outcome, err := m.authentication.RevokeToken(ctx, clientID, clientSecret, revokeURL, revokeToken, tokenTypeHint)
	if err != nil {
		return errorStatusFrom(err)
	}
	return &Status{Type: StatusComplete, Outcome: outcome}
}

// ClearDiscoveryCache drops all cached discovery state.
func (m *MobileConnect) ClearDiscoveryCache() {
	m.discovery.ClearCaches()
}

// credentials returns the operator-issued credentials from the discovery
// result, falling back to the relying party's own registration.
func (m *MobileConnect) credentials(result *discovery.Result) (string, string) {
	clientID, clientSecret := result.ClientID(), result.ClientSecret()
	if clientID == "" {
		clientID = m.config.ClientID
	}
	if clientSecret == "" {
		clientSecret = m.config.ClientSecret
	}
	return clientID, clientSecret
}

// correlationID returns the id threaded through the token calls when
// correlation mode is enabled.
func (m *MobileConnect) correlationID(result *discovery.Result) string {
	if !m.config.UseCorrelationID {
		return ""
	}
	return result.CorrelationID
}

// withCorrelation puts the flow's correlation id on the context so
// transport-level logs carry it alongside the request parameters.
func (m *MobileConnect) withCorrelation(ctx context.Context, result *discovery.Result) context.Context {
	if id := m.correlationID(result); id != "" {
		return logging.WithCorrelationID(ctx, id)
	}
	return ctx
}

func (m *MobileConnect) issuer(result *discovery.Result) string {
	if result.ProviderMetadata == nil {
		return ""
	}
	return result.ProviderMetadata.Issuer
}

// negotiateVersion resolves the effective protocol version for a request.
func (m *MobileConnect) negotiateVersion(requestedVersion, scope string, result *discovery.Result) (string, error) {
	if scope == "" {
		scope = versions.ScopeOpenID
	}
	return versions.GetCurrentVersion(requestedVersion, scope, result.ProviderMetadata.Versions())
}

func redirectErrorDescription(query url.Values) string {
	if description := query.Get("error_description"); description != "" {
		return description
	}
	if description := query.Get("description"); description != "" {
		return description
	}
	return "authorization was rejected"
}

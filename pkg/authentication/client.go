// Package authentication builds authorization URLs and drives the OAuth2
// token calls of the Mobile Connect flow.
package authentication

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	mcerrors "github.com/openmobileid/mobileconnect/pkg/errors"
	"github.com/openmobileid/mobileconnect/pkg/logging"
	"github.com/openmobileid/mobileconnect/pkg/token"
	"github.com/openmobileid/mobileconnect/pkg/transport"
	"github.com/openmobileid/mobileconnect/pkg/versions"
)

// Revoke outcomes. Per OAuth2 semantics, only an unsupported_token_type
// rejection is expected to arrive as a non-200 status.
const (
	RevokeSuccess              = "success"
	RevokeUnsupportedTokenType = "unsupported_token_type"
)

// Service executes the authorization and token exchanges of the flow.
type Service struct {
	rest   *transport.RestClient
	logger zerolog.Logger
	now    func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates an authentication Service around the given REST client.
func NewService(rest *transport.RestClient, opts ...ServiceOption) *Service {
	s := &Service{
		rest:   rest,
		logger: logging.GetLogger("authentication"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartAuthentication assembles the authorization URL the end user must be
// redirected to. The authorize variant additionally carries client name,
// context and binding message; on protocol versions that require it,
// context and client name must be present.
func (s *Service) StartAuthentication(clientID, correlationID, authorizeURL, redirectURL, state, nonce, encryptedMSISDN string, options Options, version string) (string, error) {
	if authorizeURL == "" {
		return "", mcerrors.NewRequiredArgMissing("authorizeURL")
	}
	if clientID == "" {
		return "", mcerrors.NewRequiredArgMissing("clientID")
	}
	options = options.withDefaults()

	authorize := options.usesAuthorize()
	if authorize && versions.CompareVersions(version, versions.VersionMC12) >= 0 {
		if options.Context == "" {
			return "", mcerrors.NewRequiredArgMissing("context")
		}
		if options.ClientName == "" {
			return "", mcerrors.NewRequiredArgMissing("clientName")
		}
	}

	base, err := url.Parse(authorizeURL)
	if err != nil {
		return "", mcerrors.Wrap(err, mcerrors.ErrCodeMalformedResponse, "invalid authorization endpoint url")
	}

	query := base.Query()
	query.Set("redirect_uri", redirectURL)
	query.Set("client_id", clientID)
	query.Set("response_type", ResponseType)
	query.Set("scope", options.Scope)
	query.Set("acr_values", options.AcrValues)
	query.Set("state", state)
	query.Set("nonce", nonce)
	query.Set("max_age", strconv.FormatInt(options.MaxAge, 10))
	setIfPresent(query, "correlation_id", correlationID)
	setIfPresent(query, "display", options.Display)
	setIfPresent(query, "prompt", options.Prompt)
	setIfPresent(query, "ui_locales", options.UILocales)
	setIfPresent(query, "claims_locales", options.ClaimsLocales)
	setIfPresent(query, "id_token_hint", options.IDTokenHint)
	setIfPresent(query, "dtbs", options.DTBS)
	setIfPresent(query, "claims", options.ClaimsJSON)
	setIfPresent(query, "version", version)

	// a login hint token takes precedence over a plain login hint
	if options.LoginHintToken != "" {
		query.Set("login_hint_token", options.LoginHintToken)
	} else if hint := options.loginHint(encryptedMSISDN); hint != "" {
		query.Set("login_hint", hint)
	}

	if authorize {
		setIfPresent(query, "client_name", options.ClientName)
		setIfPresent(query, "context", options.Context)
		setIfPresent(query, "binding_message", options.BindingMessage)
	}

	base.RawQuery = query.Encode()
	return base.String(), nil
}

func setIfPresent(query url.Values, key, value string) {
	if value != "" {
		query.Set(key, value)
	}
}

// RequestHeadlessAuthentication builds the authorization URL, drives it
// through to its final redirect without user interaction, extracts the
// authorization code and exchanges it for tokens. This blocks for as long
// as the remote authenticating device takes to respond; run it off any
// latency-sensitive path.
func (s *Service) RequestHeadlessAuthentication(ctx context.Context, clientID, clientSecret, correlationID, authorizeURL, requestTokenURL, redirectURL, state, nonce, encryptedMSISDN string, options Options, version string) (*token.Response, error) {
	if options.usesAuthorize() {
		options.Prompt = HeadlessPrompt
	}

	authURL, err := s.StartAuthentication(clientID, correlationID, authorizeURL, redirectURL,
		state, nonce, encryptedMSISDN, options, version)
	if err != nil {
		return nil, err
	}

	auth := &transport.BasicAuth{Username: clientID, Password: clientSecret}
	finalRedirect, err := s.rest.GetFinalRedirect(ctx, authURL, redirectURL, auth)
	if err != nil {
		return nil, err
	}

	query := finalRedirect.Query()
	if errCode := query.Get("error"); errCode != "" {
		return nil, mcerrors.Newf(mcerrors.ErrCodeTokenInvalid,
			"headless authentication rejected: %s %s", errCode, query.Get("error_description"))
	}
	code := query.Get("code")
	if code == "" {
		return nil, mcerrors.New(mcerrors.ErrCodeMalformedResponse,
			"final redirect carried no authorization code")
	}

	return s.RequestToken(ctx, clientID, clientSecret, requestTokenURL, redirectURL, code, correlationID)
}

// RequestToken exchanges an authorization code for tokens.
func (s *Service) RequestToken(ctx context.Context, clientID, clientSecret, requestTokenURL, redirectURL, code, correlationID string) (*token.Response, error) {
	if requestTokenURL == "" {
		return nil, mcerrors.NewRequiredArgMissing("requestTokenURL")
	}
	if code == "" {
		return nil, mcerrors.NewRequiredArgMissing("code")
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURL)
	setIfPresent(form, "correlation_id", correlationID)

	return s.postTokenForm(ctx, clientID, clientSecret, requestTokenURL, form)
}

// RefreshToken exchanges a refresh token for a fresh token response.
func (s *Service) RefreshToken(ctx context.Context, clientID, clientSecret, refreshTokenURL, refreshToken string) (*token.Response, error) {
	if refreshTokenURL == "" {
		return nil, mcerrors.NewRequiredArgMissing("refreshTokenURL")
	}
	if refreshToken == "" {
		return nil, mcerrors.NewRequiredArgMissing("refreshToken")
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	return s.postTokenForm(ctx, clientID, clientSecret, refreshTokenURL, form)
}

func (s *Service) postTokenForm(ctx context.Context, clientID, clientSecret, tokenURL string, form url.Values) (*token.Response, error) {
	auth := &transport.BasicAuth{Username: clientID, Password: clientSecret}
	resp, err := s.rest.PostForm(ctx, tokenURL, auth, nil, nil, form)
	if err != nil {
		return nil, err
	}
	return token.ParseResponse(resp.StatusCode, resp.Body, s.now())
}

// RevokeToken revokes an access or refresh token. An unsupported_token_type
// rejection is reported as an outcome, not an error: it is the one
// rejection the protocol expects to arrive with a non-200 status.
func (s *Service) RevokeToken(ctx context.Context, clientID, clientSecret, revokeTokenURL, revokeToken, tokenTypeHint string) (string, error) {
	if revokeTokenURL == "" {
		return "", mcerrors.NewRequiredArgMissing("revokeTokenURL")
	}
	if revokeToken == "" {
		return "", mcerrors.NewRequiredArgMissing("token")
	}

	form := url.Values{}
	form.Set("token", revokeToken)
	setIfPresent(form, "token_type_hint", tokenTypeHint)

	auth := &transport.BasicAuth{Username: clientID, Password: clientSecret}
	resp, err := s.rest.PostForm(ctx, revokeTokenURL, auth, nil, nil, form)
	if err != nil {
		return "", err
	}
	if resp.StatusCode == http.StatusOK {
		return RevokeSuccess, nil
	}

	parsed, parseErr := token.ParseResponse(resp.StatusCode, resp.Body, s.now())
	if parseErr == nil && parsed.Error != nil && parsed.Error.Error == RevokeUnsupportedTokenType {
		return RevokeUnsupportedTokenType, nil
	}
	return "", mcerrors.Newf(mcerrors.ErrCodeTransportFailure,
		"token revocation failed with status %d", resp.StatusCode)
}

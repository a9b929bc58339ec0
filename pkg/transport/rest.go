// Package transport wraps the HTTP calls the SDK makes against discovery,
// authorization and token endpoints. It is the single place where network
// timeouts and redirect policy are applied.
package transport

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	mcerrors "github.com/openmobileid/mobileconnect/pkg/errors"
	"github.com/openmobileid/mobileconnect/pkg/logging"
)

// DefaultTimeout applies when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// maxRedirectHops bounds the manual redirect walk in GetFinalRedirect.
const maxRedirectHops = 50

// BasicAuth carries HTTP Basic credentials.
type BasicAuth struct {
	Username string
	Password string
}

// Response is the raw result of an HTTP exchange.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// RestClient performs the GET/POST-form exchanges the protocol requires.
type RestClient struct {
	httpClient *http.Client
}

// NewRestClient creates a RestClient with the given request timeout.
// A non-positive timeout falls back to DefaultTimeout.
func NewRestClient(timeout time.Duration) *RestClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RestClient{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Get performs a GET request with optional basic auth, headers and cookies.
func (c *RestClient) Get(ctx context.Context, rawURL string, auth *BasicAuth, headers map[string]string, cookies []*http.Cookie) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, mcerrors.Wrap(err, mcerrors.ErrCodeTransportFailure, "failed to create request")
	}
	return c.execute(req, auth, headers, cookies)
}

// PostForm performs a form-encoded POST with optional basic auth, headers
// and cookies.
func (c *RestClient) PostForm(ctx context.Context, rawURL string, auth *BasicAuth, headers map[string]string, cookies []*http.Cookie, form url.Values) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, mcerrors.Wrap(err, mcerrors.ErrCodeTransportFailure, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.execute(req, auth, headers, cookies)
}

func (c *RestClient) execute(req *http.Request, auth *BasicAuth, headers map[string]string, cookies []*http.Cookie) (*Response, error) {
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	req.Header.Set("Accept", "application/json")
	if auth != nil {
		req.SetBasicAuth(auth.Username, auth.Password)
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	// the logger picks up any correlation id the caller put on the context
	logger := logging.LoggerFromContext(req.Context(), "transport")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Debug().Err(err).Str("url", req.URL.String()).Msg("request failed")
		return nil, mcerrors.Wrapf(err, mcerrors.ErrCodeTransportFailure, "%s %s failed", req.Method, req.URL.Host)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, mcerrors.Wrap(err, mcerrors.ErrCodeTransportFailure, "failed to read response body")
	}

	logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Int("status_code", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("http request")

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}, nil
}

// GetFinalRedirect walks the redirect chain starting at targetURL and
// returns the first redirect location that falls under stopAtRedirectURL.
// The headless authentication flow uses this to extract the authorization
// code off the final redirect without requesting the relying party's own
// callback endpoint.
func (c *RestClient) GetFinalRedirect(ctx context.Context, targetURL, stopAtRedirectURL string, auth *BasicAuth) (*url.URL, error) {
	// A dedicated client that never auto-follows; each hop is inspected.
	client := &http.Client{
		Timeout: c.httpClient.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	current := targetURL
	for hop := 0; hop < maxRedirectHops; hop++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, current, nil)
		if err != nil {
			return nil, mcerrors.Wrap(err, mcerrors.ErrCodeTransportFailure, "failed to create request")
		}
		if auth != nil {
			req.SetBasicAuth(auth.Username, auth.Password)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, mcerrors.Wrap(err, mcerrors.ErrCodeTransportFailure, "redirect chain request failed")
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if resp.StatusCode < 300 || resp.StatusCode > 399 {
			return nil, mcerrors.Newf(mcerrors.ErrCodeTransportFailure,
				"redirect chain ended with status %d before reaching %s", resp.StatusCode, stopAtRedirectURL)
		}

		location := resp.Header.Get("Location")
		if location == "" {
			return nil, mcerrors.New(mcerrors.ErrCodeMalformedResponse, "redirect response missing Location header")
		}

		next, err := resp.Request.URL.Parse(location)
		if err != nil {
			return nil, mcerrors.Wrap(err, mcerrors.ErrCodeMalformedResponse, "invalid redirect location")
		}

		if strings.HasPrefix(next.String(), stopAtRedirectURL) {
			return next, nil
		}
		current = next.String()
	}

	return nil, mcerrors.Newf(mcerrors.ErrCodeTransportFailure,
		"exceeded %d redirects without reaching %s", maxRedirectHops, stopAtRedirectURL)
}

package discovery

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/openmobileid/mobileconnect/pkg/cache"
	mcerrors "github.com/openmobileid/mobileconnect/pkg/errors"
	"github.com/openmobileid/mobileconnect/pkg/logging"
	"github.com/openmobileid/mobileconnect/pkg/transport"
)

// providerMetadataTTL bounds how long a fetched metadata document is
// considered fresh before a re-fetch is attempted.
const providerMetadataTTL = 15 * time.Minute

// Service performs operator discovery and owns the discovery-result and
// provider-metadata caches.
type Service struct {
	rest          *transport.RestClient
	resultCache   *cache.Cache[*Result]
	metadataCache *cache.Cache[*ProviderMetadata]
	logger        zerolog.Logger
	now           func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a discovery Service around the given REST client.
func NewService(rest *transport.RestClient, opts ...ServiceOption) *Service {
	s := &Service{
		rest:          rest,
		resultCache:   cache.New[*Result](),
		metadataCache: cache.New[*ProviderMetadata](),
		logger:        logging.GetLogger("discovery"),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CacheKey derives the discovery cache key from a country/network code
// pair; empty when either code is unknown.
func CacheKey(mcc, mnc string) string {
	if mcc == "" || mnc == "" {
		return ""
	}
	return mcc + "_" + mnc
}

// SeedCache stores a discovery result under the given operator codes.
// Exposed for callers that persist results across process restarts.
func (s *Service) SeedCache(mcc, mnc string, result *Result) {
	if key := CacheKey(mcc, mnc); key != "" && result != nil {
		s.resultCache.AddUntil(key, result, result.TTL)
	}
}

// ClearCaches drops both the discovery-result and metadata caches.
func (s *Service) ClearCaches() {
	s.resultCache.Clear()
	s.metadataCache.Clear()
}

// StartAutomatedDiscovery performs operator discovery. A live cache hit
// keyed by the identified (or selected) operator codes short-circuits the
// network call; on transport failure a stale cached entry, when present,
// is served instead of the error.
func (s *Service) StartAutomatedDiscovery(ctx context.Context, clientID, clientSecret, discoveryURL, redirectURL string, options Options, cookies []*http.Cookie) (*Result, error) {
	return s.doDiscovery(ctx, clientID, clientSecret, discoveryURL, redirectURL, options, cookies)
}

// CompleteSelectedOperatorDiscovery finishes discovery after the end user
// has chosen an operator in the selection UI.
func (s *Service) CompleteSelectedOperatorDiscovery(ctx context.Context, clientID, clientSecret, discoveryURL, redirectURL, selectedMCC, selectedMNC string) (*Result, error) {
	options := Options{
		SelectedMCC: selectedMCC,
		SelectedMNC: selectedMNC,
	}
	return s.doDiscovery(ctx, clientID, clientSecret, discoveryURL, redirectURL, options, nil)
}

func (s *Service) doDiscovery(ctx context.Context, clientID, clientSecret, discoveryURL, redirectURL string, options Options, cookies []*http.Cookie) (*Result, error) {
	key := CacheKey(options.cacheMCC(), options.cacheMNC())
	if cached := s.cachedResult(key, false); cached != nil {
		s.logger.Debug().Str("cache_key", key).Msg("discovery cache hit")
		return cached, nil
	}

	correlationID := ""
	logger := s.logger
	if options.UseCorrelationID {
		correlationID = uuid.NewString()
		ctx = logging.WithCorrelationID(ctx, correlationID)
		logger = logging.LoggerFromContext(ctx, "discovery")
	}

	params := buildDiscoveryParams(redirectURL, correlationID, options)
	headers := map[string]string{}
	if options.ClientIP != "" {
		headers["X-Source-IP"] = options.ClientIP
	}
	auth := &transport.BasicAuth{Username: clientID, Password: clientSecret}

	var (
		resp       *transport.Response
		err        error
		requestURI string
	)
	if options.MSISDN == "" {
		requestURI = discoveryURL + "?" + params.Encode()
		resp, err = s.rest.Get(ctx, requestURI, auth, headers, cookies)
	} else {
		params.Set("MSISDN", strings.TrimPrefix(options.MSISDN, "+"))
		requestURI = discoveryURL
		resp, err = s.rest.PostForm(ctx, discoveryURL, auth, headers, cookies, params)
	}
	if err != nil {
		if stale := s.cachedResult(key, true); stale != nil {
			logger.Warn().Err(err).Str("cache_key", key).Msg("discovery call failed, serving stale cached result")
			return stale, nil
		}
		return nil, err
	}

	result, err := NewResult(resp.StatusCode, resp.Headers, resp.Body, s.now())
	if err != nil {
		if stale := s.cachedResult(key, true); stale != nil {
			logger.Warn().Err(err).Str("cache_key", key).Msg("discovery response malformed, serving stale cached result")
			return stale, nil
		}
		return nil, err
	}

	if mdURL := result.OperatorUrls.ProviderMetadataURL; mdURL != "" {
		md, mdErr := s.providerMetadata(ctx, mdURL)
		if mdErr != nil {
			// The discovery-supplied endpoints remain valid without it.
			logger.Warn().Err(mdErr).Str("url", mdURL).Msg("provider metadata unavailable")
		} else {
			result.SetProviderMetadata(md)
		}
	}

	if result.ErrorInfo != nil {
		result.AttachRequestURI(requestURI)
	}

	// A mismatched correlation id indicates response tampering or
	// cross-session leakage and aborts the flow; absence is only a warning.
	if correlationID != "" {
		switch {
		case result.CorrelationID == "":
			logger.Warn().Str("sent", correlationID).Msg("discovery response carried no correlation id")
			result.CorrelationID = correlationID
		case result.CorrelationID != correlationID:
			return nil, mcerrors.NewInvalidCorrelationID(
				"discovery response correlation id does not match the one sent").
				WithDetails("sent", correlationID).
				WithDetails("received", result.CorrelationID)
		}
	}

	if key != "" && result.ErrorInfo == nil {
		s.resultCache.AddUntil(key, result, result.TTL)
	}
	return result, nil
}

// cachedResult returns a copy of the cached result under key, flagged as
// cached. Unless allowExpired is set, an expired entry is skipped.
func (s *Service) cachedResult(key string, allowExpired bool) *Result {
	if key == "" {
		return nil
	}
	entry, ok := s.resultCache.Get(key)
	if !ok {
		return nil
	}
	if !allowExpired && entry.Expired(s.now()) {
		return nil
	}
	cached := *entry.Value
	cached.Cached = true
	return &cached
}

func buildDiscoveryParams(redirectURL, correlationID string, options Options) url.Values {
	params := url.Values{}
	params.Set("Redirect_URL", redirectURL)
	if options.IdentifiedMCC != "" && options.IdentifiedMNC != "" {
		params.Set("Identified-MCC", options.IdentifiedMCC)
		params.Set("Identified-MNC", options.IdentifiedMNC)
	}
	if options.SelectedMCC != "" && options.SelectedMNC != "" {
		params.Set("Selected-MCC", options.SelectedMCC)
		params.Set("Selected-MNC", options.SelectedMNC)
	}
	if options.UsingMobileData {
		params.Set("Using-Mobile-Data", "1")
	}
	if options.LocalClientIP != "" {
		params.Set("Local-Client-IP", options.LocalClientIP)
	}
	if options.XRedirect != "" {
		params.Set("X-Redirect", options.XRedirect)
	}
	if correlationID != "" {
		params.Set("correlation_id", correlationID)
	}
	return params
}

// providerMetadata fetches (and caches, keyed by URL) the provider's
// metadata document, with the same stale-on-error fallback discipline as
// discovery results.
func (s *Service) providerMetadata(ctx context.Context, mdURL string) (*ProviderMetadata, error) {
	if entry, ok := s.metadataCache.Get(mdURL); ok && !entry.Expired(s.now()) {
		return entry.Value, nil
	}

	resp, err := s.rest.Get(ctx, mdURL, nil, nil, nil)
	if err == nil && resp.StatusCode != http.StatusOK {
		err = mcerrors.Newf(mcerrors.ErrCodeTransportFailure,
			"provider metadata request returned status %d", resp.StatusCode)
	}

	var md *ProviderMetadata
	if err == nil {
		md, err = ParseProviderMetadata(resp.Body)
	}
	if err != nil {
		if entry, ok := s.metadataCache.Get(mdURL); ok {
			s.logger.Warn().Err(err).Str("url", mdURL).Msg("serving stale provider metadata")
			return entry.Value, nil
		}
		return nil, err
	}

	s.metadataCache.Add(mdURL, md, providerMetadataTTL)
	return md, nil
}

// ParsedRedirect holds the parameters extracted from an operator selection
// redirect. Either field may be empty; the caller decides what a partial
// result means.
type ParsedRedirect struct {
	SelectedMCC     string
	SelectedMNC     string
	EncryptedMSISDN string
}

// ParseRedirect extracts the selected operator codes and encrypted
// subscriber id from an operator selection callback URL.
func ParseRedirect(redirectedURL string) (*ParsedRedirect, error) {
	u, err := url.Parse(redirectedURL)
	if err != nil {
		return nil, mcerrors.Wrap(err, mcerrors.ErrCodeMalformedResponse, "invalid redirect url")
	}
	query := u.Query()

	parsed := &ParsedRedirect{
		EncryptedMSISDN: query.Get("subscriber_id"),
	}
	if mccMnc := query.Get("mcc_mnc"); mccMnc != "" {
		parts := strings.Split(mccMnc, "_")
		if len(parts) != 2 {
			return nil, mcerrors.Newf(mcerrors.ErrCodeMalformedResponse,
				"mcc_mnc parameter %q is not a single mcc_mnc pair", mccMnc)
		}
		parsed.SelectedMCC = parts[0]
		parsed.SelectedMNC = parts[1]
	}
	return parsed, nil
}

// OperatorSelectionURL returns the operator selection link carried by the
// result, or "" when the operator was resolved automatically.
func OperatorSelectionURL(result *Result) string {
	if result == nil {
		return ""
	}
	return result.OperatorUrls.OperatorSelectionURL
}

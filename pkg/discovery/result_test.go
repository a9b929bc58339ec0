package discovery

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTTL_Clamping(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name       string
		ttlSeconds int64
		expected   time.Time
	}{
		{"absent defaults to min", 0, now.Add(MinTTL)},
		{"below min clamps up", 10, now.Add(MinTTL)},
		{"within bounds kept", 3600, now.Add(time.Hour)},
		{"above max clamps down", int64(400 * 24 * time.Hour / time.Second), now.Add(MaxTTL)},
		{"negative clamps up", -100, now.Add(MinTTL)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expiry := ComputeTTL(tt.ttlSeconds, now)
			assert.Equal(t, tt.expected, expiry)
			assert.False(t, expiry.Before(now.Add(MinTTL)))
			assert.False(t, expiry.After(now.Add(MaxTTL)))
		})
	}
}

const discoveryResponseBody = `{
	"ttl": 3600,
	"correlation_id": "corr-123",
	"response": {
		"serving_operator": "Example Operator",
		"client_id": "operator-client-id",
		"client_secret": "operator-client-secret",
		"client_name": "ExampleApp",
		"subscriber_id": "encrypted-subscriber",
		"apis": {
			"operatorid": {
				"link": [
					{"rel": "authorization", "href": "https://operator.example.com/authorize"},
					{"rel": "token", "href": "https://operator.example.com/token"},
					{"rel": "tokenrefresh", "href": "https://operator.example.com/token"},
					{"rel": "tokenrevoke", "href": "https://operator.example.com/revoke"},
					{"rel": "userinfo", "href": "https://operator.example.com/userinfo"},
					{"rel": "openid-configuration", "href": "https://operator.example.com/.well-known/openid-configuration"},
					{"rel": "jwks", "href": "https://operator.example.com/jwks"}
				]
			}
		}
	}
}`

func TestNewResult_Success(t *testing.T) {
	now := time.Now()
	result, err := NewResult(http.StatusOK, http.Header{}, []byte(discoveryResponseBody), now)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, result.HTTPStatus)
	assert.Equal(t, now.Add(time.Hour), result.TTL)
	assert.Equal(t, "corr-123", result.CorrelationID)
	assert.Equal(t, "ExampleApp", result.ClientName)
	assert.Equal(t, "operator-client-id", result.ClientID())
	assert.Equal(t, "operator-client-secret", result.ClientSecret())
	assert.Equal(t, "encrypted-subscriber", result.SubscriberID())
	assert.Nil(t, result.ErrorInfo)
	assert.True(t, result.Usable())

	urls := result.OperatorUrls
	assert.Equal(t, "https://operator.example.com/authorize", urls.AuthorizationURL)
	assert.Equal(t, "https://operator.example.com/token", urls.RequestTokenURL)
	assert.Equal(t, "https://operator.example.com/revoke", urls.RevokeTokenURL)
	assert.Equal(t, "https://operator.example.com/jwks", urls.JWKSURL)
	assert.Equal(t, "https://operator.example.com/.well-known/openid-configuration", urls.ProviderMetadataURL)
}

func TestNewResult_ErrorBody(t *testing.T) {
	body := `{"error": "Not_Found_Entity", "description": "operator not found"}`
	result, err := NewResult(http.StatusNotFound, http.Header{}, []byte(body), time.Now())
	require.NoError(t, err)

	require.NotNil(t, result.ErrorInfo)
	assert.Equal(t, "Not_Found_Entity", result.ErrorInfo.Error)
	assert.Equal(t, "operator not found", result.ErrorInfo.Description)
	assert.False(t, result.Usable())

	result.AttachRequestURI("https://discovery.example.com/v2?Redirect_URL=x")
	assert.Equal(t, "https://discovery.example.com/v2?Redirect_URL=x", result.ErrorInfo.RequestURI)
}

func TestNewResult_MalformedBody(t *testing.T) {
	_, err := NewResult(http.StatusOK, http.Header{}, []byte("not json"), time.Now())
	assert.Error(t, err)
}

func TestSetProviderMetadata_OverridesEndpoints(t *testing.T) {
	result, err := NewResult(http.StatusOK, http.Header{}, []byte(discoveryResponseBody), time.Now())
	require.NoError(t, err)

	result.SetProviderMetadata(&ProviderMetadata{
		AuthorizationEndpoint: "https://md.example.com/authorize",
		TokenEndpoint:         "https://md.example.com/token",
		JWKSURI:               "https://md.example.com/jwks",
	})

	assert.Equal(t, "https://md.example.com/authorize", result.OperatorUrls.AuthorizationURL)
	assert.Equal(t, "https://md.example.com/token", result.OperatorUrls.RequestTokenURL)
	assert.Equal(t, "https://md.example.com/token", result.OperatorUrls.RefreshTokenURL)
	assert.Equal(t, "https://md.example.com/jwks", result.OperatorUrls.JWKSURL)
	// endpoints the metadata does not advertise keep their discovery values
	assert.Equal(t, "https://operator.example.com/userinfo", result.OperatorUrls.UserInfoURL)
}

func TestResult_Expired(t *testing.T) {
	now := time.Now()
	result := &Result{TTL: now.Add(time.Minute)}
	assert.False(t, result.Expired(now))
	assert.True(t, result.Expired(now.Add(2*time.Minute)))
}

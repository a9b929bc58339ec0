package token

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse_Success(t *testing.T) {
	body := `{
		"access_token": "access-123",
		"token_type": "Bearer",
		"id_token": "header.payload.sig",
		"refresh_token": "refresh-456",
		"expires_in": 3600,
		"correlation_id": "corr-1"
	}`

	now := time.Now()
	response, err := ParseResponse(http.StatusOK, []byte(body), now)
	require.NoError(t, err)
	require.NotNil(t, response.ResponseData)
	assert.Nil(t, response.Error)

	data := response.ResponseData
	assert.Equal(t, "access-123", data.AccessToken)
	assert.Equal(t, "Bearer", data.TokenType)
	assert.Equal(t, "refresh-456", data.RefreshToken)
	assert.Equal(t, int64(3600), data.ExpiresIn)
	assert.Equal(t, "corr-1", data.CorrelationID)
	assert.Equal(t, now, data.TimeReceived)
	assert.False(t, data.Expired(now.Add(time.Minute)))
	assert.True(t, data.Expired(now.Add(2*time.Hour)))
}

func TestParseResponse_ErrorBody(t *testing.T) {
	body := `{"error": "invalid_grant", "error_description": "code expired", "correlation_id": "corr-2"}`

	response, err := ParseResponse(http.StatusBadRequest, []byte(body), time.Now())
	require.NoError(t, err)
	require.NotNil(t, response.Error)
	assert.Nil(t, response.ResponseData)
	assert.Equal(t, "invalid_grant", response.Error.Error)
	assert.Equal(t, "code expired", response.Error.Message())
	assert.Equal(t, "corr-2", response.Error.CorrelationID)
}

func TestParseResponse_DescriptionFallback(t *testing.T) {
	body := `{"error": "invalid_request", "description": "legacy description field"}`

	response, err := ParseResponse(http.StatusBadRequest, []byte(body), time.Now())
	require.NoError(t, err)
	require.NotNil(t, response.Error)
	assert.Equal(t, "legacy description field", response.Error.Message())
}

func TestParseResponse_Malformed(t *testing.T) {
	_, err := ParseResponse(http.StatusOK, []byte("<html>"), time.Now())
	assert.Error(t, err)
}

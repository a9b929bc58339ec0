package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcerrors "github.com/openmobileid/mobileconnect/pkg/errors"
)

func TestGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "198.51.100.7", r.Header.Get("X-Source-IP"))

		username, password, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "user", username)
		assert.Equal(t, "pass", password)

		cookie, err := r.Cookie("session")
		require.NoError(t, err)
		assert.Equal(t, "abc", cookie.Value)

		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	client := NewRestClient(5 * time.Second)
	resp, err := client.Get(context.Background(), server.URL,
		&BasicAuth{Username: "user", Password: "pass"},
		map[string]string{"X-Source-IP": "198.51.100.7"},
		[]*http.Cookie{{Name: "session", Value: "abc"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.JSONEq(t, `{"ok": true}`, string(resp.Body))
}

func TestPostForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "value", r.PostForm.Get("field"))
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewRestClient(5 * time.Second)
	form := url.Values{"field": {"value"}}
	resp, err := client.PostForm(context.Background(), server.URL, nil, nil, nil, form)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGet_TransportFailure(t *testing.T) {
	client := NewRestClient(time.Second)
	_, err := client.Get(context.Background(), "http://127.0.0.1:1", nil, nil, nil)
	require.Error(t, err)
	assert.Equal(t, mcerrors.ErrCodeTransportFailure, mcerrors.GetErrorCode(err))
}

func TestGetFinalRedirect(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/middle", http.StatusFound)
	})
	mux.HandleFunc("/middle", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://rp.example.com/callback?code=abc", http.StatusFound)
	})

	client := NewRestClient(5 * time.Second)
	final, err := client.GetFinalRedirect(context.Background(),
		server.URL+"/start", "https://rp.example.com/callback", nil)
	require.NoError(t, err)
	assert.Equal(t, "abc", final.Query().Get("code"))
}

func TestGetFinalRedirect_ChainEndsWithoutTarget(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewRestClient(5 * time.Second)
	_, err := client.GetFinalRedirect(context.Background(),
		server.URL, "https://rp.example.com/callback", nil)
	require.Error(t, err)
	assert.Equal(t, mcerrors.ErrCodeTransportFailure, mcerrors.GetErrorCode(err))
}

func TestGetFinalRedirect_HopLimit(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, server.URL+"/loop", http.StatusFound)
	}))
	defer server.Close()

	client := NewRestClient(5 * time.Second)
	_, err := client.GetFinalRedirect(context.Background(),
		server.URL, "https://rp.example.com/callback", nil)
	assert.Error(t, err)
}

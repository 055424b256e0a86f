package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fivetwenty-io/driverkit/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenServer(t *testing.T, calls *atomic.Int64) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		assert.Equal(t, http.MethodPost, r.Method)

		require.NoError(t, r.ParseForm())

		// x/oauth2 may send credentials via basic auth or the form body.
		clientID, clientSecret, ok := r.BasicAuth()
		if !ok {
			clientID = r.Form.Get("client_id")
			clientSecret = r.Form.Get("client_secret")
		}

		assert.Equal(t, "client-id", clientID)
		assert.Equal(t, "client-secret", clientSecret)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "issued-token",
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	}))
}

func TestNewOAuth2TokenManager_Validation(t *testing.T) {
	t.Parallel()

	t.Run("missing token URL", func(t *testing.T) {
		t.Parallel()

		_, err := auth.NewOAuth2TokenManager(&auth.OAuth2Config{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
		})
		require.ErrorIs(t, err, auth.ErrTokenURLRequired)
	})

	t.Run("missing client credentials", func(t *testing.T) {
		t.Parallel()

		_, err := auth.NewOAuth2TokenManager(&auth.OAuth2Config{
			TokenURL: "https://example.com/token",
		})
		require.ErrorIs(t, err, auth.ErrClientIDRequired)
	})
}

func TestOAuth2TokenManager_GetToken(t *testing.T) {
	t.Parallel()

	t.Run("returns seeded token without a token request", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int64

		server := tokenServer(t, &calls)
		defer server.Close()

		manager, err := auth.NewOAuth2TokenManager(&auth.OAuth2Config{
			TokenURL:     server.URL,
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			AccessToken:  "seeded-token",
		})
		require.NoError(t, err)

		token, err := manager.GetToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "seeded-token", token)
		assert.Equal(t, int64(0), calls.Load())
	})

	t.Run("requests token when none cached", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int64

		server := tokenServer(t, &calls)
		defer server.Close()

		manager, err := auth.NewOAuth2TokenManager(&auth.OAuth2Config{
			TokenURL:     server.URL,
			ClientID:     "client-id",
			ClientSecret: "client-secret",
		})
		require.NoError(t, err)

		token, err := manager.GetToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "issued-token", token)
		assert.Equal(t, int64(1), calls.Load())

		// Second call is served from cache.
		token, err = manager.GetToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "issued-token", token)
		assert.Equal(t, int64(1), calls.Load())
	})

	t.Run("renews expired token exactly once", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int64

		server := tokenServer(t, &calls)
		defer server.Close()

		manager, err := auth.NewOAuth2TokenManager(&auth.OAuth2Config{
			TokenURL:     server.URL,
			ClientID:     "client-id",
			ClientSecret: "client-secret",
		})
		require.NoError(t, err)

		manager.SetToken("expired-token", time.Now().Add(-time.Hour))

		token, err := manager.GetToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "issued-token", token)
		assert.Equal(t, int64(1), calls.Load())
	})

	t.Run("token endpoint failure surfaces", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
		}))
		defer server.Close()

		manager, err := auth.NewOAuth2TokenManager(&auth.OAuth2Config{
			TokenURL:     server.URL,
			ClientID:     "client-id",
			ClientSecret: "bad-secret",
		})
		require.NoError(t, err)

		_, err = manager.GetToken(context.Background())
		require.Error(t, err)
	})
}

func TestOAuth2TokenManager_RefreshToken(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64

	server := tokenServer(t, &calls)
	defer server.Close()

	manager, err := auth.NewOAuth2TokenManager(&auth.OAuth2Config{
		TokenURL:     server.URL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		AccessToken:  "seeded-token",
	})
	require.NoError(t, err)

	// Forced refresh replaces a still-valid token.
	require.NoError(t, manager.RefreshToken(context.Background()))
	assert.Equal(t, int64(1), calls.Load())

	token, err := manager.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "issued-token", token)
}

// Package auth provides token managers for the vendor authentication
// schemes: static bearer/API-key credentials and the OAuth2
// client-credentials flow.
package auth

import (
	"context"
	"sync"
	"time"
)

// expiryBuffer treats tokens expiring this soon as already expired so a
// request never leaves with a token about to lapse mid-flight.
const expiryBuffer = 30 * time.Second

// TokenManager provides access tokens for API requests.
type TokenManager interface {
	// GetToken returns a valid access token, refreshing it when needed.
	GetToken(ctx context.Context) (string, error)

	// RefreshToken forces a refresh regardless of expiry.
	RefreshToken(ctx context.Context) error

	// SetToken overrides the cached token.
	SetToken(token string, expiresAt time.Time)
}

// Token is one issued access token with its expiry.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	ExpiresAt   time.Time `json:"-"`
}

// Valid reports whether the token can still be used, applying the expiry
// buffer. Tokens without an expiry never go stale.
func (t *Token) Valid() bool {
	if t == nil || t.AccessToken == "" {
		return false
	}

	if t.ExpiresAt.IsZero() {
		return true
	}

	return time.Now().Add(expiryBuffer).Before(t.ExpiresAt)
}

// TokenStore is a mutex-guarded holder for the current token, safe for
// concurrent use by requests sharing one driver instance.
type TokenStore struct {
	mu    sync.RWMutex
	token *Token
}

// NewTokenStore creates an empty store.
func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

// Get returns the current token, or nil.
func (s *TokenStore) Get() *Token {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token
}

// Set replaces the current token.
func (s *TokenStore) Set(token *Token) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
}

// Clear drops the current token.
func (s *TokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = nil
}

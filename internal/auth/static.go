package auth

import (
	"context"
	"time"
)

// StaticTokenManager serves a fixed credential that never refreshes, for
// vendors authenticating with long-lived API keys.
type StaticTokenManager struct {
	store *TokenStore
}

// NewStaticTokenManager creates a manager holding the given credential.
func NewStaticTokenManager(token string) *StaticTokenManager {
	store := NewTokenStore()
	store.Set(&Token{AccessToken: token})

	return &StaticTokenManager{store: store}
}

// GetToken returns the fixed credential.
func (m *StaticTokenManager) GetToken(ctx context.Context) (string, error) {
	token := m.store.Get()
	if token == nil {
		return "", ErrNoToken
	}

	return token.AccessToken, nil
}

// RefreshToken is a no-op; static credentials cannot be refreshed.
func (m *StaticTokenManager) RefreshToken(ctx context.Context) error {
	return nil
}

// SetToken replaces the credential.
func (m *StaticTokenManager) SetToken(token string, expiresAt time.Time) {
	m.store.Set(&Token{AccessToken: token, ExpiresAt: expiresAt})
}

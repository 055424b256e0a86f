package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

var (
	ErrNoToken          = errors.New("no token available")
	ErrTokenURLRequired = errors.New("token URL is required")
	ErrClientIDRequired = errors.New("client ID and secret are required")
)

// OAuth2Config configures the client-credentials flow.
type OAuth2Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string

	// AccessToken, when set, seeds the store so no token request happens
	// until it expires.
	AccessToken string
}

// OAuth2TokenManager obtains and renews tokens through the OAuth2
// client-credentials grant. The token is cached per manager instance and
// renewed at most once per expiry even under concurrent callers.
type OAuth2TokenManager struct {
	config *clientcredentials.Config
	store  *TokenStore

	// refreshMu serializes token requests so concurrent expired callers
	// trigger a single renewal.
	refreshMu sync.Mutex
}

// NewOAuth2TokenManager creates a manager for the given configuration.
func NewOAuth2TokenManager(config *OAuth2Config) (*OAuth2TokenManager, error) {
	if config.TokenURL == "" {
		return nil, ErrTokenURLRequired
	}

	if config.ClientID == "" || config.ClientSecret == "" {
		return nil, ErrClientIDRequired
	}

	manager := &OAuth2TokenManager{
		config: &clientcredentials.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			TokenURL:     config.TokenURL,
			Scopes:       config.Scopes,
		},
		store: NewTokenStore(),
	}

	if config.AccessToken != "" {
		manager.store.Set(&Token{AccessToken: config.AccessToken})
	}

	return manager, nil
}

// GetToken returns the cached token when still valid, otherwise requests a
// new one.
func (m *OAuth2TokenManager) GetToken(ctx context.Context) (string, error) {
	if token := m.store.Get(); token.Valid() {
		return token.AccessToken, nil
	}

	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	// Another caller may have renewed while we waited for the lock.
	if token := m.store.Get(); token.Valid() {
		return token.AccessToken, nil
	}

	if err := m.requestToken(ctx); err != nil {
		return "", err
	}

	return m.store.Get().AccessToken, nil
}

// RefreshToken forces a renewal regardless of expiry.
func (m *OAuth2TokenManager) RefreshToken(ctx context.Context) error {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	return m.requestToken(ctx)
}

// SetToken overrides the cached token.
func (m *OAuth2TokenManager) SetToken(token string, expiresAt time.Time) {
	m.store.Set(&Token{AccessToken: token, ExpiresAt: expiresAt})
}

// requestToken performs the client-credentials exchange. Caller holds
// refreshMu.
func (m *OAuth2TokenManager) requestToken(ctx context.Context) error {
	issued, err := m.config.Token(ctx)
	if err != nil {
		return fmt.Errorf("requesting OAuth2 token: %w", err)
	}

	m.store.Set(&Token{
		AccessToken: issued.AccessToken,
		TokenType:   issued.TokenType,
		ExpiresAt:   issued.Expiry,
	})

	return nil
}

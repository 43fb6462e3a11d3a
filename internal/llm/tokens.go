package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNoToken is returned when no access token is configured or obtainable.
var ErrNoToken = errors.New("no access token available")

// tokenExpiryMargin refreshes cached tokens slightly before they expire.
const tokenExpiryMargin = 30 * time.Second

// StaticToken is a fixed API key.
type StaticToken string

// Token returns the key, or ErrNoToken when it is empty.
func (s StaticToken) Token(ctx context.Context) (string, error) {
	if s == "" {
		return "", ErrNoToken
	}
	return string(s), nil
}

// Refresh returns the same key; static keys cannot be renewed.
func (s StaticToken) Refresh(ctx context.Context) (string, error) {
	return s.Token(ctx)
}

// OAuthTokenSource obtains short-lived access tokens with the client
// credentials flow and caches them until shortly before expiry.
type OAuthTokenSource struct {
	TokenURL string
	AuthKey  string // base64 client credentials sent as Basic auth
	Scope    string

	client *http.Client
	now    func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewOAuthTokenSource creates a token source for tokenURL.
func NewOAuthTokenSource(tokenURL, authKey, scope string) *OAuthTokenSource {
	return &OAuthTokenSource{
		TokenURL: tokenURL,
		AuthKey:  authKey,
		Scope:    scope,
		client:   newHTTPClient(),
		now:      time.Now,
	}
}

type oauthResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"` // unix milliseconds
	ExpiresIn   int64  `json:"expires_in"` // seconds
}

// Token returns the cached token or fetches a new one.
func (s *OAuthTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" && s.now().Add(tokenExpiryMargin).Before(s.expiresAt) {
		return s.token, nil
	}
	return s.fetch(ctx)
}

// Refresh discards the cached token and fetches a new one.
func (s *OAuthTokenSource) Refresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return s.fetch(ctx)
}

// fetch must be called with s.mu held.
func (s *OAuthTokenSource) fetch(ctx context.Context) (string, error) {
	if s.AuthKey == "" || s.TokenURL == "" {
		return "", ErrNoToken
	}

	form := url.Values{}
	if s.Scope != "" {
		form.Set("scope", s.Scope)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+s.AuthKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("RqUID", uuid.NewString())

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to request token: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token endpoint: %w", statusError(resp.StatusCode, raw))
	}

	var body oauthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", ErrNoToken
	}

	now := s.now()
	switch {
	case body.ExpiresAt > 0:
		s.expiresAt = time.UnixMilli(body.ExpiresAt)
	case body.ExpiresIn > 0:
		s.expiresAt = now.Add(time.Duration(body.ExpiresIn) * time.Second)
	default:
		s.expiresAt = now.Add(30 * time.Minute)
	}
	s.token = body.AccessToken
	return s.token, nil
}

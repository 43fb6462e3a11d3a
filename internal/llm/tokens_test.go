package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestStaticToken(t *testing.T) {
	tok, err := StaticToken("key").Token(context.Background())
	if err != nil || tok != "key" {
		t.Errorf("Token() = %q, %v; want key, nil", tok, err)
	}
	if _, err := StaticToken("").Token(context.Background()); !errors.Is(err, ErrNoToken) {
		t.Errorf("empty StaticToken should return ErrNoToken, got %v", err)
	}
	if tok, _ := StaticToken("key").Refresh(context.Background()); tok != "key" {
		t.Errorf("Refresh() = %q, want key", tok)
	}
}

func newTokenServer(t *testing.T, calls *atomic.Int32, expiresIn int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if r.Header.Get("Authorization") != "Basic secret" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("RqUID") == "" {
			t.Error("missing RqUID header")
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("scope") != "API_SCOPE" {
			t.Errorf("scope = %q", r.PostForm.Get("scope"))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "token-" + string(rune('0'+n)),
			"expires_in":   expiresIn,
		})
	}))
}

func TestOAuthTokenSource_CachesUntilExpiry(t *testing.T) {
	var calls atomic.Int32
	server := newTokenServer(t, &calls, 600)
	defer server.Close()

	src := NewOAuthTokenSource(server.URL, "secret", "API_SCOPE")
	now := time.Unix(1_700_000_000, 0)
	src.now = func() time.Time { return now }

	first, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	second, _ := src.Token(context.Background())
	if first != second || calls.Load() != 1 {
		t.Errorf("token should be cached: %q vs %q after %d calls", first, second, calls.Load())
	}

	now = now.Add(10 * time.Minute)
	third, _ := src.Token(context.Background())
	if third == first || calls.Load() != 2 {
		t.Errorf("expired token should be refetched, got %q after %d calls", third, calls.Load())
	}
}

func TestOAuthTokenSource_Refresh(t *testing.T) {
	var calls atomic.Int32
	server := newTokenServer(t, &calls, 600)
	defer server.Close()

	src := NewOAuthTokenSource(server.URL, "secret", "API_SCOPE")
	first, _ := src.Token(context.Background())
	refreshed, err := src.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if refreshed == first || calls.Load() != 2 {
		t.Errorf("Refresh() should fetch a new token, got %q after %d calls", refreshed, calls.Load())
	}
}

func TestOAuthTokenSource_Errors(t *testing.T) {
	if _, err := NewOAuthTokenSource("", "", "").Token(context.Background()); !errors.Is(err, ErrNoToken) {
		t.Errorf("unconfigured source should return ErrNoToken, got %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := NewOAuthTokenSource(server.URL, "bad", "").Token(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("rejected credentials should wrap ErrUnauthorized, got %v", err)
	}
}

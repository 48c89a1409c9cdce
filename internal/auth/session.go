// Package auth obtains and refreshes PMS access tokens.
//
// The PMS issues a short-lived JWT access token and a refresh token from
// POST /api/auth/token/. Session hands the access token to the API client
// and renews it through POST /api/auth/token/refresh/ when it is about to
// expire or the server rejects it.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/salmonumbrella/pms-cli/internal/api"
	"github.com/salmonumbrella/pms-cli/internal/logging"
	"github.com/salmonumbrella/pms-cli/internal/secrets"
)

const (
	tokenResource   = "auth/token"
	refreshResource = "auth/token/refresh"

	// RefreshLeeway is how close to expiry an access token is renewed
	// before use.
	RefreshLeeway = 30 * time.Second
)

// ErrNoRefreshToken is returned when a session cannot be renewed.
var ErrNoRefreshToken = errors.New("no refresh token; run 'pms auth login'")

type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Login exchanges a username and password for a token pair.
func Login(ctx context.Context, baseURL, username, password string, opts ...api.ClientOption) (secrets.Token, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return secrets.Token{}, errors.New("username and password are required")
	}
	client := api.NewClient(append([]api.ClientOption{api.WithBaseURL(baseURL)}, opts...)...)
	raw, err := client.Create(ctx, tokenResource, map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return secrets.Token{}, fmt.Errorf("login failed: %w", err)
	}

	var pair tokenPair
	if err := json.Unmarshal(raw, &pair); err != nil {
		return secrets.Token{}, fmt.Errorf("login failed: unexpected response: %w", err)
	}
	if pair.Access == "" {
		return secrets.Token{}, errors.New("login failed: server returned no access token")
	}
	return secrets.Token{
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
		BaseURL:      client.BaseURL(),
		Username:     username,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// ExpiresAt reads the exp claim of a JWT without verifying its signature.
// Tokens that are not JWTs or carry no exp report ok=false.
func ExpiresAt(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// SaveFunc persists a renewed token.
type SaveFunc func(tok secrets.Token) error

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSave sets where renewed tokens are written.
func WithSave(fn SaveFunc) SessionOption {
	return func(s *Session) { s.save = fn }
}

// WithClientOptions passes options to the client used for refresh calls.
func WithClientOptions(opts ...api.ClientOption) SessionOption {
	return func(s *Session) { s.clientOpts = append(s.clientOpts, opts...) }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// Session is an api.TokenSource over a stored token pair.
type Session struct {
	mu         sync.Mutex
	tok        secrets.Token
	save       SaveFunc
	clientOpts []api.ClientOption
	client     *api.Client
	now        func() time.Time
	logger     *zap.Logger
}

// NewSession wraps tok. Refresh calls go to baseURL, or to tok.BaseURL
// when baseURL is empty.
func NewSession(tok secrets.Token, baseURL string, opts ...SessionOption) *Session {
	s := &Session{
		tok:    tok,
		now:    time.Now,
		logger: logging.Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = tok.BaseURL
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = api.DefaultBaseURL
	}
	s.client = api.NewClient(append([]api.ClientOption{api.WithBaseURL(baseURL)}, s.clientOpts...)...)
	return s
}

// Current returns a copy of the token pair.
func (s *Session) Current() secrets.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tok
}

// Token returns the access token, renewing it first when it expires
// within RefreshLeeway.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tok.RefreshToken != "" {
		if exp, ok := ExpiresAt(s.tok.AccessToken); ok && exp.Sub(s.now()) <= RefreshLeeway {
			s.logger.Debug("access token expiring, refreshing", zap.Time("exp", exp))
			if _, err := s.refreshLocked(ctx); err != nil {
				return "", err
			}
		}
	}
	return s.tok.AccessToken, nil
}

// Refresh renews the access token unconditionally.
func (s *Session) Refresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *Session) refreshLocked(ctx context.Context) (string, error) {
	if s.tok.RefreshToken == "" {
		return "", ErrNoRefreshToken
	}
	raw, err := s.client.Create(ctx, refreshResource, map[string]string{"refresh": s.tok.RefreshToken})
	if err != nil {
		return "", fmt.Errorf("token refresh failed: %w", err)
	}

	var pair tokenPair
	if err := json.Unmarshal(raw, &pair); err != nil {
		return "", fmt.Errorf("token refresh failed: unexpected response: %w", err)
	}
	if pair.Access == "" {
		return "", errors.New("token refresh failed: server returned no access token")
	}

	s.tok.AccessToken = pair.Access
	if pair.Refresh != "" {
		s.tok.RefreshToken = pair.Refresh
	}
	if s.save != nil {
		if err := s.save(s.tok); err != nil {
			s.logger.Warn("failed to persist refreshed token", zap.Error(err))
		}
	}
	s.logger.Debug("access token refreshed")
	return s.tok.AccessToken, nil
}

var _ api.TokenSource = (*Session)(nil)

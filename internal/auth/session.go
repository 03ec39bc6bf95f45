package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonathan/cv-builder/internal/types"
	"github.com/rs/zerolog"
)

// Backend is the part of the auth service the session talks to.
type Backend interface {
	Refresh(ctx context.Context, refreshToken string) (*types.LoginResponse, error)
	Logout(ctx context.Context) error
}

// ErrSessionClosed is returned by operations on a closed session.
var ErrSessionClosed = errors.New("session is closed")

// expiryLeeway refreshes tokens slightly before they expire.
const expiryLeeway = 30 * time.Second

// Session is the authentication provider for one running application.
// It is created at the root, initialized once and closed on shutdown.
type Session struct {
	store   *Store
	backend Backend
	log     zerolog.Logger
	now     func() time.Time

	mu     sync.Mutex
	closed bool
}

// NewSession returns a session over store. backend may be nil, in which case
// expired tokens are not refreshed and logout is local only.
func NewSession(store *Store, backend Backend, log zerolog.Logger) *Session {
	return &Session{
		store:   store,
		backend: backend,
		log:     log.With().Str("component", "session").Logger(),
		now:     time.Now,
	}
}

// Init refreshes an expired access token when a refresh token is stored.
// A rejected refresh clears the stored tokens; it is not an error.
func (s *Session) Init(ctx context.Context) error {
	_, err := s.Token(ctx)
	return err
}

// Token returns a usable access token, refreshing it first when it has expired.
// It returns "" when the user is not logged in.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrSessionClosed
	}

	token, err := s.store.AccessToken(ctx)
	if err != nil || token == "" {
		return "", err
	}
	if !Expired(token, s.now(), expiryLeeway) {
		return token, nil
	}

	refresh, err := s.store.RefreshToken(ctx)
	if err != nil {
		return "", err
	}
	if refresh == "" || s.backend == nil {
		s.log.Info().Msg("access token expired, clearing session")
		return "", s.store.Clear(ctx)
	}

	resp, err := s.backend.Refresh(ctx, refresh)
	if err != nil {
		s.log.Warn().Err(err).Msg("token refresh failed, clearing session")
		return "", s.store.Clear(ctx)
	}
	pair := resp.Tokens()
	if err := s.store.Save(ctx, pair); err != nil {
		return "", err
	}
	s.log.Debug().Msg("access token refreshed")
	return pair.AccessToken, nil
}

// IsAuthenticated reports whether a usable access token is available.
func (s *Session) IsAuthenticated(ctx context.Context) bool {
	token, err := s.Token(ctx)
	return err == nil && token != ""
}

// Login stores the tokens issued by the auth service.
func (s *Session) Login(ctx context.Context, resp *types.LoginResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if resp == nil {
		return fmt.Errorf("empty login response")
	}
	return s.store.Save(ctx, resp.Tokens())
}

// Logout tells the backend best-effort and always clears the stored tokens.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.backend != nil {
		if err := s.backend.Logout(ctx); err != nil {
			s.log.Warn().Err(err).Msg("backend logout failed")
		}
	}
	return s.store.Clear(ctx)
}

// Close ends the session. Stored tokens are kept for the next run.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

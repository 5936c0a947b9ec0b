package auth

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"databank/internal/api"
	"databank/internal/errors"
)

// State is the session's position in its lifecycle.
type State string

const (
	// StateSignedOut means no backend token is held.
	StateSignedOut State = "signedOut"
	// StatePendingExchange means the identity provider accepted the user but
	// the provider assertion has not yet been traded for a backend token.
	StatePendingExchange State = "pendingExchange"
	// StateSignedIn means a backend token is held and persisted.
	StateSignedIn State = "signedIn"
)

// Session drives authentication end to end: identity provider sign-in, the
// backend token exchange, persistence through the token store, and forced
// sign-out when the backend stops honoring the token.
type Session struct {
	provider IdentityProvider
	client   *api.Client
	tokens   api.TokenStore
	bus      *api.InvalidationBus
	logger   *errors.Logger

	mu       sync.Mutex
	state    State
	identity Identity
}

// NewSession builds a session in the signedOut state. If the token store
// already holds a token from a previous run, the session resumes signedIn;
// the backend will veto a stale token with a 401 on first use. A persisted
// provider refresh token is picked up so Reconcile can restore the session
// across runs.
func NewSession(provider IdentityProvider, client *api.Client, tokens api.TokenStore, bus *api.InvalidationBus, logger *errors.Logger) *Session {
	s := &Session{
		provider: provider,
		client:   client,
		tokens:   tokens,
		bus:      bus,
		logger:   logger,
		state:    StateSignedOut,
	}
	if tokens.Get() != "" {
		s.state = StateSignedIn
	}
	if rs, ok := tokens.(api.RefreshTokenStore); ok {
		s.identity.Refresh = rs.RefreshToken()
	}
	return s
}

// State reports the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity reports what the provider told us about the user. Zero when the
// session was resumed from a persisted token.
func (s *Session) Identity() Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// SignIn performs password sign-in: provider first, then the token exchange.
func (s *Session) SignIn(ctx context.Context, email, password string) error {
	identity, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	return s.completeExchange(ctx, identity)
}

// SignInWithAssertion finishes sign-in from an assertion obtained elsewhere,
// such as the Google federated flow.
func (s *Session) SignInWithAssertion(ctx context.Context, identity Identity) error {
	return s.completeExchange(ctx, identity)
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// SignUp creates the account on both sides: the identity provider account
// (which owns the password going forward) and the backend user record. When
// the backend's register response carries no token, the normal login
// exchange finishes the job.
func (s *Session) SignUp(ctx context.Context, email, username, password string) error {
	identity, err := s.provider.SignUp(ctx, email, password, username)
	if err != nil {
		return err
	}

	s.setState(StatePendingExchange, identity)

	var resp tokenResponse
	err = s.client.Do(ctx, api.Request{
		Method: http.MethodPost,
		Path:   "/api/auth/register",
		Body:   registerRequest{Email: email, Username: username, Password: password},
		Header: assertionHeader(identity.Assertion),
	}, &resp)
	if err != nil {
		s.setState(StateSignedOut, Identity{})
		return errors.NewAuthError(errors.ErrCodeSignUpFailed,
			"backend registration failed", err)
	}

	if resp.AccessToken != "" {
		return s.adoptToken(resp.AccessToken, identity)
	}
	return s.completeExchange(ctx, identity)
}

// Reconcile handles a provider session that outlived the backend token:
// the provider still vouches for the user but no backend token is held, so
// the exchange is retried. If the exchange fails the session is forced out
// rather than left half signed in.
func (s *Session) Reconcile(ctx context.Context) error {
	s.mu.Lock()
	identity := s.identity
	s.mu.Unlock()

	if identity.Assertion == "" && identity.Refresh != "" {
		restored, err := s.provider.Restore(ctx, identity.Refresh)
		if err != nil {
			s.Logout(ctx)
			return err
		}
		identity = restored
	}
	if identity.Assertion == "" {
		s.Logout(ctx)
		return errors.NewAuthError(errors.ErrCodeTokenMissing,
			"no provider session to reconcile", nil)
	}

	if err := s.completeExchange(ctx, identity); err != nil {
		s.Logout(ctx)
		return err
	}
	return nil
}

// Logout clears the session. The remote call is best-effort: local state is
// cleared regardless, so a dead backend cannot keep the user signed in.
func (s *Session) Logout(ctx context.Context) {
	err := s.client.Do(ctx, api.Request{
		Method: http.MethodPost,
		Path:   "/api/auth/logout",
	}, nil)
	if err != nil && s.logger != nil {
		s.logger.Debug("Remote logout failed, clearing local session anyway",
			"error", err.Error())
	}

	if rs, ok := s.tokens.(api.RefreshTokenStore); ok {
		if err := rs.SetRefreshToken(""); err != nil && s.logger != nil {
			s.logger.Warn("Failed to clear persisted refresh token", "error", err.Error())
		}
	}
	if err := s.tokens.Clear(); err != nil && s.logger != nil {
		s.logger.Warn("Failed to clear persisted token", "error", err.Error())
	}
	s.setState(StateSignedOut, Identity{})
}

// WatchInvalidation forces the session out whenever the backend rejects the
// token. It blocks until the context is cancelled, so run it in its own
// goroutine.
func (s *Session) WatchInvalidation(ctx context.Context) {
	events, cancel := s.bus.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if s.logger != nil {
				s.logger.Warn("Session invalidated by the backend",
					"status", event.Status, "path", event.Path)
			}
			// The transport already cleared the bearer token. The provider
			// session may still be valid, so the refresh token is kept for
			// Reconcile.
			s.mu.Lock()
			s.state = StateSignedOut
			s.identity = Identity{Refresh: s.identity.Refresh}
			s.mu.Unlock()
		}
	}
}

// completeExchange trades the provider assertion for a backend token. The
// assertion rides in the Authorization header; the body is empty.
func (s *Session) completeExchange(ctx context.Context, identity Identity) error {
	if strings.TrimSpace(identity.Assertion) == "" {
		return errors.NewAuthError(errors.ErrCodeTokenMissing,
			"identity provider returned no assertion", nil)
	}

	s.setState(StatePendingExchange, identity)

	var resp tokenResponse
	err := s.client.Do(ctx, api.Request{
		Method: http.MethodPost,
		Path:   "/api/auth/login",
		Header: assertionHeader(identity.Assertion),
	}, &resp)
	if err != nil {
		s.setState(StateSignedOut, Identity{})
		return errors.NewAuthError(errors.ErrCodeExchangeFailed,
			"token exchange failed", err)
	}
	if resp.AccessToken == "" {
		s.setState(StateSignedOut, Identity{})
		return errors.NewAuthError(errors.ErrCodeExchangeFailed,
			"login response did not include an access token", nil)
	}

	return s.adoptToken(resp.AccessToken, identity)
}

func (s *Session) adoptToken(token string, identity Identity) error {
	if err := s.tokens.Set(token); err != nil {
		s.setState(StateSignedOut, Identity{})
		return errors.NewIOError(errors.ErrCodeFileNotReadable,
			"failed to persist the access token", err)
	}
	if rs, ok := s.tokens.(api.RefreshTokenStore); ok && identity.Refresh != "" {
		if err := rs.SetRefreshToken(identity.Refresh); err != nil && s.logger != nil {
			s.logger.Warn("Failed to persist the provider refresh token",
				"error", err.Error())
		}
	}
	s.setState(StateSignedIn, identity)
	if s.logger != nil {
		s.logger.Info("Signed in", "email", identity.Email)
	}
	return nil
}

func (s *Session) setState(state State, identity Identity) {
	s.mu.Lock()
	s.state = state
	s.identity = identity
	s.mu.Unlock()
}

func assertionHeader(assertion string) http.Header {
	header := make(http.Header)
	header.Set("Authorization", "Bearer "+assertion)
	return header
}

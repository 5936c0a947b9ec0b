package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"databank/internal/config"
	"databank/internal/errors"
)

// Identity is what the identity provider knows about the signed-in user.
// The assertion is the provider-issued ID token the backend exchange accepts.
type Identity struct {
	Assertion   string
	Email       string
	DisplayName string
	// Refresh lets the session mint a fresh assertion after a restart.
	Refresh string
}

// IdentityProvider abstracts the hosted identity service. The backend never
// sees the user's password; it only ever receives the provider's assertion.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (Identity, error)
	SignUp(ctx context.Context, email, password, displayName string) (Identity, error)
	SignInWithGoogle(ctx context.Context, googleIDToken string) (Identity, error)
	Restore(ctx context.Context, refresh string) (Identity, error)
}

const defaultIdentityEndpoint = "https://identitytoolkit.googleapis.com/v1"
const defaultTokenEndpoint = "https://securetoken.googleapis.com/v1"

// RESTProvider talks to the Identity Toolkit REST API.
type RESTProvider struct {
	apiKey        string
	endpoint      string
	tokenEndpoint string
	http          *http.Client
	logger        *errors.Logger
}

// NewRESTProvider builds the provider from configuration. The web API key is
// required; everything else has defaults.
func NewRESTProvider(cfg config.AuthConfig, logger *errors.Logger) (*RESTProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.NewAuthError(errors.ErrCodeMissingAPIKey,
			"identity provider API key is not configured", nil)
	}

	endpoint := strings.TrimSuffix(cfg.Endpoint, "/")
	tokenEndpoint := defaultTokenEndpoint
	if endpoint == "" {
		endpoint = defaultIdentityEndpoint
	} else {
		// A custom endpoint (tests, emulator) serves both APIs.
		tokenEndpoint = endpoint
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	return &RESTProvider{
		apiKey:        cfg.APIKey,
		endpoint:      endpoint,
		tokenEndpoint: tokenEndpoint,
		http:          &http.Client{Timeout: timeout},
		logger:        logger,
	}, nil
}

type providerTokenResponse struct {
	IDToken      string `json:"idToken"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	RefreshToken string `json:"refreshToken"`
}

type providerErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// SignIn exchanges email and password for an identity assertion.
func (p *RESTProvider) SignIn(ctx context.Context, email, password string) (Identity, error) {
	var resp providerTokenResponse
	err := p.post(ctx, p.endpoint+"/accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return Identity{}, errors.NewAuthError(errors.ErrCodeSignInFailed,
			"sign in failed", err)
	}
	return identityFrom(resp), nil
}

// SignUp creates the provider account and sets the display name in the same
// round of calls.
func (p *RESTProvider) SignUp(ctx context.Context, email, password, displayName string) (Identity, error) {
	var resp providerTokenResponse
	err := p.post(ctx, p.endpoint+"/accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return Identity{}, errors.NewAuthError(errors.ErrCodeSignUpFailed,
			"sign up failed", err)
	}

	if displayName != "" {
		var updated providerTokenResponse
		err = p.post(ctx, p.endpoint+"/accounts:update", map[string]any{
			"idToken":           resp.IDToken,
			"displayName":       displayName,
			"returnSecureToken": true,
		}, &updated)
		if err != nil {
			// The account exists, the name just did not stick. Not fatal.
			if p.logger != nil {
				p.logger.Warn("Failed to set display name after sign up", "error", err.Error())
			}
		} else {
			resp.DisplayName = updated.DisplayName
			if updated.IDToken != "" {
				resp.IDToken = updated.IDToken
			}
		}
	}
	return identityFrom(resp), nil
}

// SignInWithGoogle trades a Google ID token for a provider assertion.
func (p *RESTProvider) SignInWithGoogle(ctx context.Context, googleIDToken string) (Identity, error) {
	var resp providerTokenResponse
	err := p.post(ctx, p.endpoint+"/accounts:signInWithIdp", map[string]any{
		"postBody":            fmt.Sprintf("id_token=%s&providerId=google.com", googleIDToken),
		"requestUri":          "http://localhost",
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	}, &resp)
	if err != nil {
		return Identity{}, errors.NewAuthError(errors.ErrCodeSignInFailed,
			"Google sign in failed", err)
	}
	return identityFrom(resp), nil
}

type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
}

// Restore mints a fresh assertion from a stored refresh token.
func (p *RESTProvider) Restore(ctx context.Context, refresh string) (Identity, error) {
	if strings.TrimSpace(refresh) == "" {
		return Identity{}, errors.NewAuthError(errors.ErrCodeTokenMissing,
			"no provider session to restore", nil)
	}
	var resp refreshResponse
	err := p.post(ctx, p.tokenEndpoint+"/token", map[string]any{
		"grant_type":    "refresh_token",
		"refresh_token": refresh,
	}, &resp)
	if err != nil {
		return Identity{}, errors.NewAuthError(errors.ErrCodeSignInFailed,
			"provider session restore failed", err)
	}
	return Identity{Assertion: resp.IDToken, Refresh: resp.RefreshToken}, nil
}

func identityFrom(resp providerTokenResponse) Identity {
	return Identity{
		Assertion:   resp.IDToken,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
		Refresh:     resp.RefreshToken,
	}
}

func (p *RESTProvider) post(ctx context.Context, rawURL string, payload any, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode provider request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL+"?key="+p.apiKey,
		bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read provider response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var perr providerErrorResponse
		if json.Unmarshal(body, &perr) == nil && perr.Error.Message != "" {
			return fmt.Errorf("provider rejected the request: %s", perr.Error.Message)
		}
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode provider response: %w", err)
		}
	}
	return nil
}

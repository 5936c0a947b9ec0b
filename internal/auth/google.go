package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"databank/internal/config"
	"databank/internal/errors"
)

// GoogleFlow runs the authorization-code flow against Google with a loopback
// redirect. It is interactive: the user opens the printed URL in a browser
// and Google sends them back to a short-lived local listener.
type GoogleFlow struct {
	clientID     string
	clientSecret string
	port         int
	logger       *errors.Logger

	// OpenURL is called with the consent URL. Default prints to stdout so
	// the user can open it themselves; tests drive the flow directly.
	OpenURL func(url string)
}

// NewGoogleFlow builds the flow from configuration.
func NewGoogleFlow(cfg config.GoogleOAuthConfig, logger *errors.Logger) (*GoogleFlow, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			"Google sign-in requires auth.google.clientID and auth.google.clientSecret", nil)
	}
	return &GoogleFlow{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		port:         cfg.RedirectPort,
		logger:       logger,
		OpenURL: func(url string) {
			fmt.Printf("Open this URL in your browser to sign in with Google:\n\n  %s\n\n", url)
		},
	}, nil
}

type callbackResult struct {
	code string
	err  error
}

// Run executes the flow and returns the Google ID token. The context bounds
// the whole interaction, including the wait for the browser redirect.
func (g *GoogleFlow) Run(ctx context.Context) (string, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", g.port))
	if err != nil {
		return "", errors.NewNetworkError(errors.ErrCodeRequestFailed,
			"cannot open loopback listener for the sign-in redirect", err)
	}
	defer listener.Close()

	conf := &oauth2.Config{
		ClientID:     g.clientID,
		ClientSecret: g.clientSecret,
		RedirectURL:  fmt.Sprintf("http://%s/callback", listener.Addr().String()),
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}

	state, err := randomState()
	if err != nil {
		return "", errors.NewInternalError("STATE_GENERATION_FAILED",
			"cannot generate OAuth state", err)
	}

	results := make(chan callbackResult, 1)
	server := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/callback" {
				http.NotFound(w, r)
				return
			}
			query := r.URL.Query()
			if query.Get("state") != state {
				http.Error(w, "state mismatch", http.StatusBadRequest)
				results <- callbackResult{err: fmt.Errorf("state mismatch in OAuth callback")}
				return
			}
			if errCode := query.Get("error"); errCode != "" {
				http.Error(w, "sign in was denied", http.StatusBadRequest)
				results <- callbackResult{err: fmt.Errorf("consent denied: %s", errCode)}
				return
			}
			fmt.Fprintln(w, "Signed in. You can close this tab and return to the terminal.")
			results <- callbackResult{code: query.Get("code")}
		}),
	}
	go server.Serve(listener)
	defer server.Close()

	g.OpenURL(conf.AuthCodeURL(state, oauth2.AccessTypeOffline))

	var result callbackResult
	select {
	case result = <-results:
	case <-ctx.Done():
		return "", errors.NewNetworkError(errors.ErrCodeNetworkTimeout,
			"timed out waiting for the browser redirect", ctx.Err())
	}
	if result.err != nil {
		return "", errors.NewAuthError(errors.ErrCodeSignInFailed,
			"Google sign in failed", result.err)
	}

	token, err := conf.Exchange(ctx, result.code)
	if err != nil {
		return "", errors.NewAuthError(errors.ErrCodeExchangeFailed,
			"failed to exchange the authorization code", err)
	}

	idToken, ok := token.Extra("id_token").(string)
	if !ok || idToken == "" {
		return "", errors.NewAuthError(errors.ErrCodeExchangeFailed,
			"Google response did not include an ID token", nil)
	}
	return idToken, nil
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

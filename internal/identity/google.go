package identity

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/spigell/cv-evaluator/internal/logger"
)

const (
	googleProviderID = "google.com"
	callbackPath     = "/callback"
	loopbackAddr     = "127.0.0.1:0"
)

// GoogleFlow signs the user in with Google using the authorization code flow
// with PKCE. The code is received on a loopback listener, which stands in for
// the browser popup of a web client.
type GoogleFlow struct {
	Config *oauth2.Config
	// OpenURL hands the consent URL to the user, e.g. prints it or opens a browser.
	OpenURL func(url string) error
	// ListenAddr is the loopback address for the redirect listener.
	ListenAddr string

	logger *zap.Logger
}

type callbackResult struct {
	code string
	err  error
}

func NewGoogleFlow(clientID, clientSecret string, openURL func(string) error, log *zap.Logger) *GoogleFlow {
	return &GoogleFlow{
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		OpenURL:    openURL,
		ListenAddr: loopbackAddr,
		logger:     logger.OrNop(log),
	}
}

func (g *GoogleFlow) Credential(ctx context.Context) (*FederatedCredential, error) {
	if g.Config == nil || strings.TrimSpace(g.Config.ClientID) == "" {
		return nil, errors.New("google client id is required")
	}
	if g.OpenURL == nil {
		return nil, errors.New("no way to show the consent url")
	}

	listener, err := net.Listen("tcp", g.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("listen for oauth callback: %w", err)
	}

	cfg := *g.Config
	cfg.RedirectURL = fmt.Sprintf("http://%s%s", listener.Addr().String(), callbackPath)

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	results := make(chan callbackResult, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		result := readCallback(r, state)
		if result.err != nil {
			http.Error(w, result.err.Error(), http.StatusBadRequest)
		} else {
			_, _ = fmt.Fprintln(w, "Signed in. You can close this window.")
		}

		select {
		case results <- result:
		default:
		}
	})

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Warn("oauth callback listener stopped", zap.Error(err))
		}
	}()
	defer server.Close()

	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier))
	g.logger.Debug("waiting for google consent", zap.String("redirect_url", cfg.RedirectURL))

	if err := g.OpenURL(authURL); err != nil {
		return nil, fmt.Errorf("open consent url: %w", err)
	}

	var result callbackResult
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result = <-results:
	}

	if result.err != nil {
		return nil, result.err
	}

	token, err := cfg.Exchange(ctx, result.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	idToken, _ := token.Extra("id_token").(string)
	if idToken == "" && token.AccessToken == "" {
		return nil, errors.New("google returned neither id token nor access token")
	}

	return &FederatedCredential{
		ProviderID:  googleProviderID,
		IDToken:     idToken,
		AccessToken: token.AccessToken,
		RequestURI:  cfg.RedirectURL,
	}, nil
}

func readCallback(r *http.Request, state string) callbackResult {
	q := r.URL.Query()

	if errCode := q.Get("error"); errCode != "" {
		return callbackResult{err: fmt.Errorf("google sign-in failed: %s", errCode)}
	}

	if q.Get("state") != state {
		return callbackResult{err: errors.New("oauth state mismatch")}
	}

	code := q.Get("code")
	if code == "" {
		return callbackResult{err: errors.New("oauth callback has no code")}
	}

	return callbackResult{code: code}
}

// Package identity signs users in against the external identity provider and
// returns the identity proof that the backend accepts in exchange for
// application tokens.
package identity

import (
	"context"
	"errors"
)

// ErrNoFederatedFlow is returned by SignInFederated when no interactive flow is configured.
var ErrNoFederatedFlow = errors.New("federated sign-in is not configured")

// Identity is the result of a successful provider sign-in.
type Identity struct {
	UID   string
	Email string
	// IDToken is the identity proof presented to the backend.
	IDToken    string
	ProviderID string
}

// Provider is the identity provider capability used by the session client.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Identity, error)
	SignInFederated(ctx context.Context) (*Identity, error)
	CreateAccount(ctx context.Context, email, password string) (*Identity, error)
	SignOut(ctx context.Context) error
}

// FederatedCredential is what an interactive third-party sign-in yields.
type FederatedCredential struct {
	ProviderID  string
	IDToken     string
	AccessToken string
	// RequestURI is the redirect URI used by the flow.
	RequestURI string
}

// FederatedFlow runs an interactive third-party sign-in.
type FederatedFlow interface {
	Credential(ctx context.Context) (*FederatedCredential, error)
}

// Unavailable stands in for a provider that could not be configured. Sign-in
// fails with Err; SignOut succeeds so a cached session can still be dropped.
type Unavailable struct {
	Err error
}

func (u *Unavailable) SignInWithPassword(context.Context, string, string) (*Identity, error) {
	return nil, u.Err
}

func (u *Unavailable) SignInFederated(context.Context) (*Identity, error) {
	return nil, u.Err
}

func (u *Unavailable) CreateAccount(context.Context, string, string) (*Identity, error) {
	return nil, u.Err
}

func (u *Unavailable) SignOut(context.Context) error {
	return nil
}

package session

import (
	"errors"
	"fmt"
)

var (
	// ErrProvider matches errors raised by the identity provider step.
	ErrProvider = errors.New("identity provider")
	// ErrExchange matches errors raised by the backend token exchange.
	ErrExchange = errors.New("token exchange")
	// ErrNoRefreshToken is returned by RefreshAccessToken when nothing is cached.
	ErrNoRefreshToken = errors.New("no refresh token")
)

// Kind classifies an AuthError.
type Kind int

const (
	KindProvider Kind = iota + 1
	KindExchange
	KindNoRefreshToken
)

// AuthError is returned by every failing session operation.
// errors.Is matches it against ErrProvider, ErrExchange or ErrNoRefreshToken
// by kind, and Unwrap exposes the underlying cause.
type AuthError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.sentinel())
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.sentinel(), e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func (e *AuthError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *AuthError) sentinel() error {
	switch e.Kind {
	case KindProvider:
		return ErrProvider
	case KindExchange:
		return ErrExchange
	case KindNoRefreshToken:
		return ErrNoRefreshToken
	default:
		return errors.New("auth error")
	}
}

// Package tokenstore persists session state between processes.
//
// The session client keeps its state in memory; a Store is only consulted at
// restore time and written through on every change. Stored values are bearer
// credentials, so implementations must keep them private to the user.
package tokenstore

import (
	"context"
	"errors"
	"time"

	"github.com/spigell/cv-evaluator/internal/backend"
)

// ErrNotFound is returned by Load when nothing has been saved.
var ErrNotFound = errors.New("session state not found")

// State is the persisted form of a session.
type State struct {
	AccessToken  string       `json:"access_token,omitempty"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	User         backend.User `json:"user,omitempty"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Empty reports whether the state carries no credentials and no user.
func (s *State) Empty() bool {
	return s == nil || (s.AccessToken == "" && s.RefreshToken == "" && len(s.User) == 0)
}

type Store interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, state *State) error
	Clear(ctx context.Context) error
}

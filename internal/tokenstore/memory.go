package tokenstore

import (
	"context"
	"sync"
)

// Memory keeps the state for the lifetime of the process.
type Memory struct {
	mu    sync.Mutex
	state *State
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(_ context.Context) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == nil {
		return nil, ErrNotFound
	}
	return clone(m.state), nil
}

func (m *Memory) Save(_ context.Context, state *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = clone(state)
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = nil
	return nil
}

func clone(state *State) *State {
	if state == nil {
		return nil
	}
	copied := *state
	copied.User = state.User.Clone()
	return &copied
}

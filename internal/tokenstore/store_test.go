package tokenstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/spigell/cv-evaluator/internal/backend"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store, err := NewRedis(rdb, "", ttl)
	if err != nil {
		t.Fatalf("new redis store: %v", err)
	}
	return store, mr
}

func TestStores(t *testing.T) {
	cases := []struct {
		name  string
		store func(t *testing.T) Store
	}{
		{
			name:  "memory",
			store: func(*testing.T) Store { return NewMemory() },
		},
		{
			name: "file",
			store: func(t *testing.T) Store {
				store, err := NewFile(filepath.Join(t.TempDir(), "nested", "session.json"))
				if err != nil {
					t.Fatalf("new file store: %v", err)
				}
				return store
			},
		},
		{
			name: "redis",
			store: func(t *testing.T) Store {
				store, _ := newRedisStore(t, 0)
				return store
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			store := tc.store(t)

			if _, err := store.Load(ctx); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound on empty store, got %v", err)
			}

			state := &State{
				AccessToken:  "A1",
				RefreshToken: "R1",
				User:         backend.User{"id": "u1"},
				UpdatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			}
			if err := store.Save(ctx, state); err != nil {
				t.Fatalf("save: %v", err)
			}

			loaded, err := store.Load(ctx)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if loaded.AccessToken != "A1" || loaded.RefreshToken != "R1" || loaded.User.ID() != "u1" {
				t.Fatalf("unexpected state: %+v", loaded)
			}
			if !loaded.UpdatedAt.Equal(state.UpdatedAt) {
				t.Fatalf("unexpected updated at: %v", loaded.UpdatedAt)
			}

			if err := store.Clear(ctx); err != nil {
				t.Fatalf("clear: %v", err)
			}
			if _, err := store.Load(ctx); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound after clear, got %v", err)
			}

			// Clearing twice is not an error.
			if err := store.Clear(ctx); err != nil {
				t.Fatalf("second clear: %v", err)
			}
		})
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	state := &State{AccessToken: "A1", User: backend.User{"id": "u1"}}
	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("save: %v", err)
	}
	state.User["id"] = "changed"

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.User.ID() != "u1" {
		t.Fatalf("stored state must not alias the caller's: %v", loaded.User)
	}
}

func TestFileIsPrivate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store, err := NewFile(path)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}

	if err := store.Save(context.Background(), &State{AccessToken: "A1"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != fileMode {
		t.Fatalf("expected mode %o, got %o", fileMode, perm)
	}
}

func TestFileRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	store, _ := NewFile(path)
	if _, err := store.Load(context.Background()); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestRedisTTL(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Hour)

	if err := store.Save(ctx, &State{AccessToken: "A1"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ttl := mr.TTL(defaultRedisKey); ttl != time.Hour {
		t.Fatalf("expected ttl of one hour, got %v", ttl)
	}

	mr.FastForward(2 * time.Hour)

	if _, err := store.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestStateEmpty(t *testing.T) {
	var nilState *State
	if !nilState.Empty() || !(&State{}).Empty() {
		t.Fatalf("expected empty states")
	}
	if (&State{RefreshToken: "R1"}).Empty() {
		t.Fatalf("state with refresh token is not empty")
	}
}

// Package identity bootstraps the anonymous per-installation user id that
// scopes requests to the backend.
package identity

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/Makepad-fr/tada/internal/store"
)

// EnvVar overrides the stored identity without touching the store.
const EnvVar = "TADA_USER"

// Source tells where an identity came from.
type Source string

const (
	SourceEnv       Source = "env"
	SourceStore     Source = "store"
	SourceGenerated Source = "generated"
)

// Identity is the opaque user id plus its origin.
type Identity struct {
	ID     string
	Source Source
}

// Ensure returns the env override, else the stored id, else a fresh UUID
// that it persists first.
func Ensure(kv store.KV) (Identity, error) {
	if env := strings.TrimSpace(os.Getenv(EnvVar)); env != "" {
		return Identity{ID: env, Source: SourceEnv}, nil
	}

	v, err := kv.Get(store.KeyUser)
	switch {
	case err == nil && strings.TrimSpace(v) != "":
		return Identity{ID: strings.TrimSpace(v), Source: SourceStore}, nil
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return Identity{}, fmt.Errorf("read identity: %w", err)
	}

	id := uuid.NewString()
	if err := kv.Set(store.KeyUser, id); err != nil {
		return Identity{}, fmt.Errorf("save identity: %w", err)
	}
	return Identity{ID: id, Source: SourceGenerated}, nil
}

// Reset forgets the stored id; the next Ensure generates a new one.
func Reset(kv store.KV) error {
	if err := kv.Delete(store.KeyUser); err != nil {
		return fmt.Errorf("reset identity: %w", err)
	}
	return nil
}

// Package store holds small client-side string values (identity, theme)
// that must survive restarts.
package store

import "errors"

// Well-known keys.
const (
	KeyUser  = "todoUser"
	KeyTheme = "theme"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("key not found")

// KV is a durable string key-value store.
type KV interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
	Close() error
}

// Package blob stores large JSON documents (hydrated exercises, user
// settings) in object storage and hands out short-lived URLs for them.
package blob

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by GetJSON when the key does not exist.
var ErrNotFound = errors.New("blob not found")

// Store is a private JSON object store.
type Store interface {
	// PutJSON encodes v and writes it under key, replacing any previous object.
	PutJSON(ctx context.Context, key string, v any) error
	// GetJSON decodes the object under key into v.
	GetJSON(ctx context.Context, key string, v any) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// SignedURL returns a URL that grants read access to key until expiry.
	SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// ExerciseKey is where a hydrated exercise body lives.
func ExerciseKey(exerciseID string) string {
	return "exercises/" + exerciseID + ".json"
}

// SettingsKey is where a user's settings document lives.
func SettingsKey(userID string) string {
	return "users/" + userID + "/settings.json"
}

var (
	_ Store = (*S3)(nil)
	_ Store = (*Memory)(nil)
)

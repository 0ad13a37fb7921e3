package blob

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "exercises/abc.json", ExerciseKey("abc"))
	assert.Equal(t, "users/u1/settings.json", SettingsKey("u1"))
}

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	type doc struct {
		Theme string   `json:"theme"`
		Langs []string `json:"langs"`
	}
	require.NoError(t, m.PutJSON(ctx, "users/u1/settings.json", doc{Theme: "dark", Langs: []string{"ko"}}))

	var got doc
	require.NoError(t, m.GetJSON(ctx, "users/u1/settings.json", &got))
	assert.Equal(t, doc{Theme: "dark", Langs: []string{"ko"}}, got)

	assert.Equal(t, []string{"users/u1/settings.json"}, m.Keys("users/"))
	assert.Empty(t, m.Keys("exercises/"))
}

func TestMemoryMissingAndDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var v map[string]any
	assert.ErrorIs(t, m.GetJSON(ctx, "nope", &v), ErrNotFound)

	require.NoError(t, m.PutJSON(ctx, "k", map[string]int{"a": 1}))
	require.NoError(t, m.Delete(ctx, "k"))
	require.NoError(t, m.Delete(ctx, "k"), "deleting twice is fine")
	assert.ErrorIs(t, m.GetJSON(ctx, "k", &v), ErrNotFound)
}

func TestMemorySignedURL(t *testing.T) {
	m := NewMemory()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	raw, err := m.SignedURL(context.Background(), "exercises/e1.json", 15*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "memory", u.Scheme)
	assert.Equal(t, "/exercises/e1.json", u.Path)
	assert.Equal(t, "2026-01-02T03:19:05Z", u.Query().Get("expires"))
}

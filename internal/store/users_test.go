package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func mustUser(t *testing.T, db *DB, email, name string) *User {
	t.Helper()
	u, err := db.CreateUser(context.Background(), email, name, "hash")
	require.NoError(t, err)
	return u
}

func TestCreateUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u, err := db.CreateUser(ctx, "Ada@Example.com", "Ada", "hash")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "ada@example.com", u.Email)

	got, err := db.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u, got)

	byEmail, err := db.GetUserByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, u.ID, byEmail.ID)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	mustUser(t, db, "ada@example.com", "Ada")

	_, err := db.CreateUser(context.Background(), "ADA@example.com", "Other", "hash")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestGetUserMissing(t *testing.T) {
	db := newTestDB(t)
	u, err := db.GetUser(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestUpdateUserName(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := mustUser(t, db, "ada@example.com", "Ada")

	got, err := db.UpdateUserName(ctx, u.ID, "Ada Lovelace")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", got.Name)

	_, err = db.UpdateUserName(ctx, "nope", "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchUsers(t *testing.T) {
	db := newTestDB(t)
	mustUser(t, db, "ada@example.com", "Ada")
	mustUser(t, db, "alan@example.com", "Alan")
	mustUser(t, db, "grace@example.com", "Grace")

	users, err := db.SearchUsers(context.Background(), "a", 10)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Ada", users[0].Name)
	assert.Equal(t, "Alan", users[1].Name)

	users, err = db.SearchUsers(context.Background(), "grace@", 10)
	require.NoError(t, err)
	require.Len(t, users, 1)

	users, err = db.SearchUsers(context.Background(), "_", 10)
	require.NoError(t, err)
	assert.Empty(t, users, "underscore is not a wildcard")
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// User is an account. PasswordHash is a bcrypt hash.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    int64
	UpdatedAt    int64
}

const userColumns = `id, email, name, password_hash, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a user. Emails are stored lower-cased and must be unique.
func (db *DB) CreateUser(ctx context.Context, email, name, passwordHash string) (*User, error) {
	now := nowMillis()
	u := &User{
		ID:           newID(),
		Email:        strings.ToLower(email),
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err := db.ExecContext(ctx, db.rebind(`
		INSERT INTO users (id, email, name, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), u.ID, u.Email, u.Name, u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return nil, conflictOr(err, "create user")
	}
	return u, nil
}

// GetUser returns a user by id, or nil if not found.
func (db *DB) GetUser(ctx context.Context, id string) (*User, error) {
	u, err := scanUser(db.QueryRowContext(ctx, db.rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetUserByEmail returns a user by email (case-insensitive), or nil if not found.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(db.QueryRowContext(ctx, db.rebind(`SELECT `+userColumns+` FROM users WHERE email = ?`), strings.ToLower(email)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// UpdateUserName renames a user.
func (db *DB) UpdateUserName(ctx context.Context, id, name string) (*User, error) {
	now := nowMillis()
	result, err := db.ExecContext(ctx, db.rebind(`UPDATE users SET name = ?, updated_at = ? WHERE id = ?`), name, now, id)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("update user %s: %w", id, ErrNotFound)
	}
	return db.GetUser(ctx, id)
}

// SearchUsers matches name or email prefixes, used when inviting group members.
func (db *DB) SearchUsers(ctx context.Context, query string, limit int) ([]User, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := escapeLike(strings.TrimSpace(query)) + "%"
	rows, err := db.QueryContext(ctx, db.rebind(`
		SELECT `+userColumns+` FROM users
		WHERE LOWER(name) LIKE LOWER(?) ESCAPE '\' OR LOWER(email) LIKE LOWER(?) ESCAPE '\'
		ORDER BY name LIMIT ?
	`), pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

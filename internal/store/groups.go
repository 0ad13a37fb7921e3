package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Role is a group membership role. Owners outrank admins, admins outrank members.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

func (r Role) rank() int {
	switch r {
	case RoleOwner:
		return 3
	case RoleAdmin:
		return 2
	case RoleMember:
		return 1
	}
	return 0
}

// AtLeast reports whether r is min or higher in the hierarchy.
func (r Role) AtLeast(min Role) bool {
	return r.rank() > 0 && r.rank() >= min.rank()
}

// Outranks reports whether r is strictly above other.
func (r Role) Outranks(other Role) bool {
	return r.rank() > other.rank()
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r.rank() > 0
}

// Group is a set of users notes can be shared with.
type Group struct {
	ID          string
	Name        string
	Description string
	CreatedAt   int64
	UpdatedAt   int64
}

// Membership links a user to a group with a role.
type Membership struct {
	GroupID   string
	UserID    string
	Role      Role
	CreatedAt int64
}

const groupColumns = `g.id, g.name, COALESCE(g.description, ''), g.created_at, g.updated_at`

func scanGroups(rows *sql.Rows) ([]Group, error) {
	var groups []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// CreateGroup inserts a group and makes ownerID its owner in one transaction.
func (db *DB) CreateGroup(ctx context.Context, ownerID, name, description string) (*Group, error) {
	now := nowMillis()
	g := &Group{ID: newID(), Name: name, Description: description, CreatedAt: now, UpdatedAt: now}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create group: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, db.rebind(`
		INSERT INTO user_groups (id, name, description, created_at, updated_at)
		VALUES (?, ?, NULLIF(?, ''), ?, ?)
	`), g.ID, g.Name, g.Description, g.CreatedAt, g.UpdatedAt); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	if _, err := tx.ExecContext(ctx, db.rebind(`
		INSERT INTO group_memberships (group_id, user_id, role, created_at) VALUES (?, ?, ?, ?)
	`), g.ID, ownerID, string(RoleOwner), now); err != nil {
		return nil, fmt.Errorf("create owner membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create group: %w", err)
	}
	return g, nil
}

// GetGroup returns a group by id, or nil if not found.
func (db *DB) GetGroup(ctx context.Context, id string) (*Group, error) {
	var g Group
	err := db.QueryRowContext(ctx, db.rebind(`SELECT `+groupColumns+` FROM user_groups g WHERE g.id = ?`), id).
		Scan(&g.ID, &g.Name, &g.Description, &g.CreatedAt, &g.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	return &g, nil
}

// UpdateGroup changes a group's name and description.
func (db *DB) UpdateGroup(ctx context.Context, id, name, description string) (*Group, error) {
	result, err := db.ExecContext(ctx, db.rebind(`
		UPDATE user_groups SET name = ?, description = NULLIF(?, ''), updated_at = ? WHERE id = ?
	`), name, description, nowMillis(), id)
	if err != nil {
		return nil, fmt.Errorf("update group: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("update group %s: %w", id, ErrNotFound)
	}
	return db.GetGroup(ctx, id)
}

// DeleteGroup removes a group; memberships and note shares cascade.
func (db *DB) DeleteGroup(ctx context.Context, id string) error {
	result, err := db.ExecContext(ctx, db.rebind(`DELETE FROM user_groups WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("delete group %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListGroupsForUser returns the groups a user belongs to, ordered by name.
func (db *DB) ListGroupsForUser(ctx context.Context, userID string) ([]Group, error) {
	rows, err := db.QueryContext(ctx, db.rebind(`
		SELECT `+groupColumns+` FROM user_groups g
		JOIN group_memberships m ON m.group_id = g.id
		WHERE m.user_id = ? ORDER BY g.name
	`), userID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()
	return scanGroups(rows)
}

// GetMembership returns a user's membership in a group, or nil if none.
func (db *DB) GetMembership(ctx context.Context, groupID, userID string) (*Membership, error) {
	var m Membership
	var role string
	err := db.QueryRowContext(ctx, db.rebind(`
		SELECT group_id, user_id, role, created_at FROM group_memberships
		WHERE group_id = ? AND user_id = ?
	`), groupID, userID).Scan(&m.GroupID, &m.UserID, &role, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get membership: %w", err)
	}
	m.Role = Role(role)
	return &m, nil
}

// ListMembers returns a group's memberships, owners first.
func (db *DB) ListMembers(ctx context.Context, groupID string) ([]Membership, error) {
	rows, err := db.QueryContext(ctx, db.rebind(`
		SELECT group_id, user_id, role, created_at FROM group_memberships
		WHERE group_id = ?
		ORDER BY CASE role WHEN 'owner' THEN 0 WHEN 'admin' THEN 1 ELSE 2 END, created_at
	`), groupID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []Membership
	for rows.Next() {
		var m Membership
		var role string
		if err := rows.Scan(&m.GroupID, &m.UserID, &role, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		m.Role = Role(role)
		members = append(members, m)
	}
	return members, rows.Err()
}

// AddMember inserts a membership. Adding an existing member is a conflict.
func (db *DB) AddMember(ctx context.Context, groupID, userID string, role Role) (*Membership, error) {
	m := &Membership{GroupID: groupID, UserID: userID, Role: role, CreatedAt: nowMillis()}
	_, err := db.ExecContext(ctx, db.rebind(`
		INSERT INTO group_memberships (group_id, user_id, role, created_at) VALUES (?, ?, ?, ?)
	`), m.GroupID, m.UserID, string(m.Role), m.CreatedAt)
	if err != nil {
		return nil, conflictOr(err, "add member")
	}
	return m, nil
}

// UpdateMemberRole changes a member's role.
func (db *DB) UpdateMemberRole(ctx context.Context, groupID, userID string, role Role) (*Membership, error) {
	result, err := db.ExecContext(ctx, db.rebind(`
		UPDATE group_memberships SET role = ? WHERE group_id = ? AND user_id = ?
	`), string(role), groupID, userID)
	if err != nil {
		return nil, fmt.Errorf("update member role: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("update member %s/%s: %w", groupID, userID, ErrNotFound)
	}
	return db.GetMembership(ctx, groupID, userID)
}

// RemoveMember deletes a membership.
func (db *DB) RemoveMember(ctx context.Context, groupID, userID string) error {
	result, err := db.ExecContext(ctx, db.rebind(`
		DELETE FROM group_memberships WHERE group_id = ? AND user_id = ?
	`), groupID, userID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("remove member %s/%s: %w", groupID, userID, ErrNotFound)
	}
	return nil
}

// CountOwners returns how many owners a group has.
func (db *DB) CountOwners(ctx context.Context, groupID string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, db.rebind(`
		SELECT COUNT(*) FROM group_memberships WHERE group_id = ? AND role = 'owner'
	`), groupID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count owners: %w", err)
	}
	return n, nil
}

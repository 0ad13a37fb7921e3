package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleHierarchy(t *testing.T) {
	assert.True(t, RoleOwner.AtLeast(RoleAdmin))
	assert.True(t, RoleAdmin.AtLeast(RoleAdmin))
	assert.False(t, RoleMember.AtLeast(RoleAdmin))
	assert.False(t, Role("guest").AtLeast(RoleMember))

	assert.True(t, RoleOwner.Outranks(RoleAdmin))
	assert.False(t, RoleAdmin.Outranks(RoleAdmin))
	assert.False(t, RoleMember.Outranks(RoleOwner))

	assert.True(t, RoleMember.Valid())
	assert.False(t, Role("").Valid())
}

func TestCreateGroupMakesOwner(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := mustUser(t, db, "ada@example.com", "Ada")

	g, err := db.CreateGroup(ctx, u.ID, "Study club", "")
	require.NoError(t, err)

	m, err := db.GetMembership(ctx, g.ID, u.ID)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, RoleOwner, m.Role)

	owners, err := db.CountOwners(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, owners)

	groups, err := db.ListGroupsForUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Study club", groups[0].Name)
}

func TestGroupMembers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := mustUser(t, db, "ada@example.com", "Ada")
	member := mustUser(t, db, "alan@example.com", "Alan")
	g, err := db.CreateGroup(ctx, owner.ID, "G", "desc")
	require.NoError(t, err)

	_, err = db.AddMember(ctx, g.ID, member.ID, RoleMember)
	require.NoError(t, err)
	_, err = db.AddMember(ctx, g.ID, member.ID, RoleAdmin)
	assert.ErrorIs(t, err, ErrConflict)

	m, err := db.UpdateMemberRole(ctx, g.ID, member.ID, RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, m.Role)

	members, err := db.ListMembers(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, owner.ID, members[0].UserID, "owners first")

	require.NoError(t, db.RemoveMember(ctx, g.ID, member.ID))
	assert.ErrorIs(t, db.RemoveMember(ctx, g.ID, member.ID), ErrNotFound)

	_, err = db.UpdateMemberRole(ctx, g.ID, member.ID, RoleOwner)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateAndDeleteGroup(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := mustUser(t, db, "ada@example.com", "Ada")
	g, _ := db.CreateGroup(ctx, u.ID, "G", "")

	updated, err := db.UpdateGroup(ctx, g.ID, "Renamed", "now with text")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "now with text", updated.Description)

	require.NoError(t, db.DeleteGroup(ctx, g.ID))
	got, err := db.GetGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	m, err := db.GetMembership(ctx, g.ID, u.ID)
	require.NoError(t, err)
	assert.Nil(t, m, "memberships cascade")
}

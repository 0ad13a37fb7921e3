package graph

import (
	"context"
	"strings"

	graphql "github.com/graph-gophers/graphql-go"

	"github.com/lazypower/mnemo/internal/apperr"
	"github.com/lazypower/mnemo/internal/auth"
	"github.com/lazypower/mnemo/internal/engine"
	"github.com/lazypower/mnemo/internal/store"
)

type groupResolver struct {
	root *Resolver
	g    store.Group
}

func (r *groupResolver) ID() graphql.ID { return graphql.ID(r.g.ID) }
func (r *groupResolver) Name() string { return r.g.Name }
func (r *groupResolver) Description() *string { return optString(r.g.Description) }
func (r *groupResolver) CreatedAt() graphql.Time { return toTime(r.g.CreatedAt) }

func (r *groupResolver) Members(ctx context.Context) ([]*memberResolver, error) {
	members, err := r.root.db.ListMembers(ctx, r.g.ID)
	if err != nil {
		return nil, r.root.fail(err)
	}
	out := make([]*memberResolver, len(members))
	for i := range members {
		out[i] = &memberResolver{root: r.root, m: members[i]}
	}
	return out, nil
}

func (r *groupResolver) MyRole(ctx context.Context) (*string, error) {
	uid, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return nil, nil
	}
	m, err := r.root.db.GetMembership(ctx, r.g.ID, uid)
	if err != nil {
		return nil, r.root.fail(err)
	}
	if m == nil {
		return nil, nil
	}
	role := roleEnum(m.Role)
	return &role, nil
}

func (r *Resolver) groupResolvers(groups []store.Group) []*groupResolver {
	out := make([]*groupResolver, len(groups))
	for i := range groups {
		out[i] = &groupResolver{root: r, g: groups[i]}
	}
	return out
}

type memberResolver struct {
	root *Resolver
	m    store.Membership
}

func (r *memberResolver) Role() string { return roleEnum(r.m.Role) }
func (r *memberResolver) JoinedAt() graphql.Time { return toTime(r.m.CreatedAt) }

func (r *memberResolver) User(ctx context.Context) (*userResolver, error) {
	return r.root.loadUser(ctx, r.m.UserID)
}

func roleEnum(role store.Role) string {
	return strings.ToUpper(string(role))
}

func parseRole(s string) (store.Role, error) {
	role := store.Role(strings.ToLower(s))
	if !role.Valid() {
		return "", apperr.BadInput("unknown group role %q", s)
	}
	return role, nil
}

// memberGroup loads a group and the caller's membership in it. Callers who
// are not members are refused.
func (r *Resolver) memberGroup(ctx context.Context, uid, id string) (*store.Group, *store.Membership, error) {
	g, err := r.db.GetGroup(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if g == nil {
		return nil, nil, apperr.Missing("group", id)
	}
	m, err := r.db.GetMembership(ctx, id, uid)
	if err != nil {
		return nil, nil, err
	}
	if m == nil {
		return nil, nil, apperr.Forbidden("you are not a member of group %s", id)
	}
	return g, m, nil
}

// adminGroup is memberGroup for callers that must be at least min.
func (r *Resolver) adminGroup(ctx context.Context, uid, id string, min store.Role) (*store.Group, *store.Membership, error) {
	g, m, err := r.memberGroup(ctx, uid, id)
	if err != nil {
		return nil, nil, err
	}
	if !m.Role.AtLeast(min) {
		return nil, nil, apperr.Forbidden("group %s requires the %s role", id, min)
	}
	return g, m, nil
}

func (r *Resolver) Groups(ctx context.Context) ([]*groupResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	groups, err := r.db.ListGroupsForUser(ctx, uid)
	if err != nil {
		return nil, r.fail(err)
	}
	return r.groupResolvers(groups), nil
}

func (r *Resolver) Group(ctx context.Context, args struct{ ID graphql.ID }) (*groupResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	g, _, err := r.memberGroup(ctx, uid, string(args.ID))
	if err != nil {
		return nil, r.fail(err)
	}
	return &groupResolver{root: r, g: *g}, nil
}

func (r *Resolver) CreateGroup(ctx context.Context, args struct {
	Name        string
	Description *string
}) (*groupResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	if err := engine.ValidateName("group name", args.Name); err != nil {
		return nil, r.fail(err)
	}
	g, err := r.db.CreateGroup(ctx, uid, args.Name, deref(args.Description))
	if err != nil {
		return nil, r.fail(err)
	}
	return &groupResolver{root: r, g: *g}, nil
}

func (r *Resolver) UpdateGroup(ctx context.Context, args struct {
	ID          graphql.ID
	Name        string
	Description *string
}) (*groupResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	id := string(args.ID)
	if _, _, err := r.adminGroup(ctx, uid, id, store.RoleAdmin); err != nil {
		return nil, r.fail(err)
	}
	if err := engine.ValidateName("group name", args.Name); err != nil {
		return nil, r.fail(err)
	}
	g, err := r.db.UpdateGroup(ctx, id, args.Name, deref(args.Description))
	if err != nil {
		return nil, r.storeFail(err, "group", id)
	}
	return &groupResolver{root: r, g: *g}, nil
}

func (r *Resolver) DeleteGroup(ctx context.Context, args struct{ ID graphql.ID }) (*groupResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	g, _, err := r.adminGroup(ctx, uid, string(args.ID), store.RoleOwner)
	if err != nil {
		return nil, r.fail(err)
	}
	if err := r.db.DeleteGroup(ctx, g.ID); err != nil {
		return nil, r.storeFail(err, "group", g.ID)
	}
	return &groupResolver{root: r, g: *g}, nil
}

func (r *Resolver) AddGroupMember(ctx context.Context, args struct {
	GroupID graphql.ID
	UserID  graphql.ID
	Role    *string
}) (*memberResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	groupID, userID := string(args.GroupID), string(args.UserID)
	_, actor, err := r.adminGroup(ctx, uid, groupID, store.RoleAdmin)
	if err != nil {
		return nil, r.fail(err)
	}

	role := store.RoleMember
	if args.Role != nil {
		if role, err = parseRole(*args.Role); err != nil {
			return nil, r.fail(err)
		}
	}
	if role != store.RoleMember && actor.Role != store.RoleOwner {
		return nil, r.fail(apperr.Forbidden("only owners can grant the %s role", role))
	}

	u, err := r.db.GetUser(ctx, userID)
	if err != nil {
		return nil, r.fail(err)
	}
	if u == nil {
		return nil, r.fail(apperr.Missing("user", userID))
	}
	m, err := r.db.AddMember(ctx, groupID, userID, role)
	if err != nil {
		if apperr.Is(engine.StoreError(err, "membership", ""), apperr.Conflict) {
			return nil, r.fail(apperr.New(apperr.Conflict, "user %s is already a member of group %s", userID, groupID))
		}
		return nil, r.fail(err)
	}
	return &memberResolver{root: r, m: *m}, nil
}

// checkMemberChange applies the rank rules shared by role changes and
// removals. newRole is empty for a removal.
func (r *Resolver) checkMemberChange(ctx context.Context, actor, target *store.Membership, newRole store.Role) error {
	self := actor.UserID == target.UserID
	if !self && !actor.Role.AtLeast(store.RoleAdmin) {
		return apperr.Forbidden("group %s requires the %s role", actor.GroupID, store.RoleAdmin)
	}
	if !self && !actor.Role.Outranks(target.Role) {
		return apperr.Forbidden("cannot change a member of equal or higher rank")
	}
	if newRole != "" && newRole != store.RoleMember && actor.Role != store.RoleOwner {
		return apperr.Forbidden("only owners can grant the %s role", newRole)
	}
	if target.Role == store.RoleOwner && newRole != store.RoleOwner {
		owners, err := r.db.CountOwners(ctx, target.GroupID)
		if err != nil {
			return err
		}
		if owners <= 1 {
			return apperr.New(apperr.Conflict, "group %s must keep at least one owner", target.GroupID)
		}
	}
	return nil
}

// targetMember loads the caller's and the target's memberships.
func (r *Resolver) targetMember(ctx context.Context, uid, groupID, userID string) (*store.Membership, *store.Membership, error) {
	_, actor, err := r.memberGroup(ctx, uid, groupID)
	if err != nil {
		return nil, nil, err
	}
	target, err := r.db.GetMembership(ctx, groupID, userID)
	if err != nil {
		return nil, nil, err
	}
	if target == nil {
		return nil, nil, apperr.New(apperr.NotFound, "user %s is not a member of group %s", userID, groupID)
	}
	return actor, target, nil
}

func (r *Resolver) UpdateGroupMemberRole(ctx context.Context, args struct {
	GroupID graphql.ID
	UserID  graphql.ID
	Role    string
}) (*memberResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	groupID, userID := string(args.GroupID), string(args.UserID)
	role, err := parseRole(args.Role)
	if err != nil {
		return nil, r.fail(err)
	}
	actor, target, err := r.targetMember(ctx, uid, groupID, userID)
	if err != nil {
		return nil, r.fail(err)
	}
	if target.Role == role {
		return &memberResolver{root: r, m: *target}, nil
	}
	if err := r.checkMemberChange(ctx, actor, target, role); err != nil {
		return nil, r.fail(err)
	}
	m, err := r.db.UpdateMemberRole(ctx, groupID, userID, role)
	if err != nil {
		return nil, r.storeFail(err, "membership", groupID+"/"+userID)
	}
	return &memberResolver{root: r, m: *m}, nil
}

func (r *Resolver) RemoveGroupMember(ctx context.Context, args struct {
	GroupID graphql.ID
	UserID  graphql.ID
}) (*memberResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	groupID, userID := string(args.GroupID), string(args.UserID)
	actor, target, err := r.targetMember(ctx, uid, groupID, userID)
	if err != nil {
		return nil, r.fail(err)
	}
	if err := r.checkMemberChange(ctx, actor, target, ""); err != nil {
		return nil, r.fail(err)
	}
	if err := r.db.RemoveMember(ctx, groupID, userID); err != nil {
		return nil, r.storeFail(err, "membership", groupID+"/"+userID)
	}
	return &memberResolver{root: r, m: *target}, nil
}

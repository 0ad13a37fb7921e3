package graph

import (
	"context"
	"net/mail"
	"strings"

	graphql "github.com/graph-gophers/graphql-go"

	"github.com/lazypower/mnemo/internal/apperr"
	"github.com/lazypower/mnemo/internal/auth"
	"github.com/lazypower/mnemo/internal/engine"
	"github.com/lazypower/mnemo/internal/store"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

type userResolver struct {
	u    *store.User
	self bool
}

func (r *userResolver) ID() graphql.ID { return graphql.ID(r.u.ID) }
func (r *userResolver) Name() string { return r.u.Name }
func (r *userResolver) CreatedAt() graphql.Time { return toTime(r.u.CreatedAt) }

func (r *userResolver) Email() *string {
	if !r.self {
		return nil
	}
	return &r.u.Email
}

func newUserResolver(ctx context.Context, u *store.User) *userResolver {
	viewer, _ := auth.UserIDFromContext(ctx)
	return &userResolver{u: u, self: viewer == u.ID}
}

// loadUser resolves a user reference held by another entity.
func (r *Resolver) loadUser(ctx context.Context, id string) (*userResolver, error) {
	u, err := r.db.GetUser(ctx, id)
	if err != nil {
		return nil, r.fail(err)
	}
	if u == nil {
		return nil, r.fail(apperr.Missing("user", id))
	}
	return newUserResolver(ctx, u), nil
}

type authPayloadResolver struct {
	token string
	user  *userResolver
}

func (r *authPayloadResolver) Token() string { return r.token }
func (r *authPayloadResolver) User() *userResolver { return r.user }

func (r *Resolver) Me(ctx context.Context) (*userResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	return r.loadUser(ctx, uid)
}

func (r *Resolver) User(ctx context.Context, args struct{ ID graphql.ID }) (*userResolver, error) {
	if _, err := auth.RequireUser(ctx); err != nil {
		return nil, r.fail(err)
	}
	u, err := r.db.GetUser(ctx, string(args.ID))
	if err != nil || u == nil {
		return nil, r.fail(err)
	}
	return newUserResolver(ctx, u), nil
}

func (r *Resolver) Users(ctx context.Context, args struct {
	Search string
	Limit  *int32
}) ([]*userResolver, error) {
	if _, err := auth.RequireUser(ctx); err != nil {
		return nil, r.fail(err)
	}
	limit := defaultSearchLimit
	if args.Limit != nil {
		limit = int(*args.Limit)
	}
	if limit < 1 || limit > maxSearchLimit {
		return nil, r.fail(apperr.BadInput("limit must be between 1 and %d", maxSearchLimit))
	}
	if strings.TrimSpace(args.Search) == "" {
		return []*userResolver{}, nil
	}

	users, err := r.db.SearchUsers(ctx, args.Search, limit)
	if err != nil {
		return nil, r.fail(err)
	}
	out := make([]*userResolver, len(users))
	for i := range users {
		out[i] = newUserResolver(ctx, &users[i])
	}
	return out, nil
}

func (r *Resolver) SignUp(ctx context.Context, args struct {
	Email    string
	Name     string
	Password string
}) (*authPayloadResolver, error) {
	addr, err := mail.ParseAddress(args.Email)
	if err != nil || addr.Address != args.Email {
		return nil, r.fail(apperr.BadInput("email %q is not a valid address", args.Email))
	}
	if err := engine.ValidateName("name", args.Name); err != nil {
		return nil, r.fail(err)
	}
	if err := auth.ValidatePassword(args.Password); err != nil {
		return nil, r.fail(apperr.BadInput("%s", err.Error()))
	}

	hash, err := auth.HashPassword(args.Password)
	if err != nil {
		return nil, r.fail(err)
	}
	u, err := r.db.CreateUser(ctx, args.Email, args.Name, hash)
	if err != nil {
		if apperr.Is(engine.StoreError(err, "user", ""), apperr.Conflict) {
			return nil, r.fail(apperr.New(apperr.Conflict, "email %s is already registered", args.Email))
		}
		return nil, r.fail(err)
	}
	return r.issue(u)
}

func (r *Resolver) LogIn(ctx context.Context, args struct {
	Email    string
	Password string
}) (*authPayloadResolver, error) {
	u, err := r.db.GetUserByEmail(ctx, strings.TrimSpace(args.Email))
	if err != nil {
		return nil, r.fail(err)
	}
	if u == nil || !auth.CheckPassword(u.PasswordHash, args.Password) {
		return nil, r.fail(apperr.Unauthenticatedf("invalid email or password"))
	}
	return r.issue(u)
}

func (r *Resolver) issue(u *store.User) (*authPayloadResolver, error) {
	token, err := r.issuer.Issue(u.ID)
	if err != nil {
		return nil, r.fail(err)
	}
	return &authPayloadResolver{token: token, user: &userResolver{u: u, self: true}}, nil
}

func (r *Resolver) UpdateMe(ctx context.Context, args struct{ Name string }) (*userResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	if err := engine.ValidateName("name", args.Name); err != nil {
		return nil, r.fail(err)
	}
	u, err := r.db.UpdateUserName(ctx, uid, args.Name)
	if err != nil {
		return nil, r.storeFail(err, "user", uid)
	}
	return newUserResolver(ctx, u), nil
}

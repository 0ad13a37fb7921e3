package graph

import (
	"context"

	graphql "github.com/graph-gophers/graphql-go"

	"github.com/lazypower/mnemo/internal/apperr"
	"github.com/lazypower/mnemo/internal/auth"
	"github.com/lazypower/mnemo/internal/engine"
	"github.com/lazypower/mnemo/internal/store"
)

type labelResolver struct {
	l store.Label
}

func (r *labelResolver) ID() graphql.ID { return graphql.ID(r.l.ID) }
func (r *labelResolver) Name() string { return r.l.Name }
func (r *labelResolver) Color() *string { return optString(r.l.Color) }
func (r *labelResolver) CreatedAt() graphql.Time { return toTime(r.l.CreatedAt) }

func labelResolvers(labels []store.Label) []*labelResolver {
	out := make([]*labelResolver, len(labels))
	for i := range labels {
		out[i] = &labelResolver{l: labels[i]}
	}
	return out
}

func (r *Resolver) Labels(ctx context.Context) ([]*labelResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	labels, err := r.db.ListLabels(ctx, uid)
	if err != nil {
		return nil, r.fail(err)
	}
	return labelResolvers(labels), nil
}

func (r *Resolver) CreateLabel(ctx context.Context, args struct {
	Name  string
	Color *string
}) (*labelResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	if err := engine.ValidateName("label name", args.Name); err != nil {
		return nil, r.fail(err)
	}
	l, err := r.db.CreateLabel(ctx, uid, args.Name, deref(args.Color))
	if err != nil {
		return nil, r.storeFail(err, "label "+args.Name, "")
	}
	return &labelResolver{l: *l}, nil
}

// ownLabel loads a label and checks the caller created it.
func (r *Resolver) ownLabel(ctx context.Context, uid, id string) (*store.Label, error) {
	l, err := r.db.GetLabel(ctx, id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, apperr.Missing("label", id)
	}
	if l.CreatorID != uid {
		return nil, apperr.Forbidden("label %s belongs to another user", id)
	}
	return l, nil
}

func (r *Resolver) UpdateLabel(ctx context.Context, args struct {
	ID    graphql.ID
	Name  string
	Color *string
}) (*labelResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	if _, err := r.ownLabel(ctx, uid, string(args.ID)); err != nil {
		return nil, r.fail(err)
	}
	if err := engine.ValidateName("label name", args.Name); err != nil {
		return nil, r.fail(err)
	}
	l, err := r.db.UpdateLabel(ctx, string(args.ID), args.Name, deref(args.Color))
	if err != nil {
		return nil, r.storeFail(err, "label "+args.Name, string(args.ID))
	}
	return &labelResolver{l: *l}, nil
}

func (r *Resolver) DeleteLabel(ctx context.Context, args struct{ ID graphql.ID }) (*labelResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	l, err := r.ownLabel(ctx, uid, string(args.ID))
	if err != nil {
		return nil, r.fail(err)
	}
	if err := r.db.DeleteLabel(ctx, l.ID); err != nil {
		return nil, r.storeFail(err, "label", l.ID)
	}
	return &labelResolver{l: *l}, nil
}

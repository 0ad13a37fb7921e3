package graph

import (
	"context"

	graphql "github.com/graph-gophers/graphql-go"

	"github.com/lazypower/mnemo/internal/apperr"
	"github.com/lazypower/mnemo/internal/auth"
	"github.com/lazypower/mnemo/internal/engine"
	"github.com/lazypower/mnemo/internal/store"
)

type filterResolver struct {
	f store.ExerciseFilter
}

func (r *filterResolver) ID() graphql.ID { return graphql.ID(r.f.ID) }
func (r *filterResolver) Name() string { return r.f.Name }
func (r *filterResolver) CreatorIDs() []graphql.ID { return toIDs(r.f.Criteria.CreatorIDs) }
func (r *filterResolver) LabelIDs() []graphql.ID { return toIDs(r.f.Criteria.LabelIDs) }
func (r *filterResolver) CreatedAt() graphql.Time { return toTime(r.f.CreatedAt) }
func (r *filterResolver) UpdatedAt() graphql.Time { return toTime(r.f.UpdatedAt) }

func (r *filterResolver) LanguageCodes() []string {
	if r.f.Criteria.LanguageCodes == nil {
		return []string{}
	}
	return r.f.Criteria.LanguageCodes
}

func (r *filterResolver) MaxCorrectStreak() *int32 {
	if r.f.Criteria.MaxCorrectStreak == nil {
		return nil
	}
	n := int32(*r.f.Criteria.MaxCorrectStreak)
	return &n
}

// ownFilter loads a saved filter created by uid.
func (r *Resolver) ownFilter(ctx context.Context, uid, id string) (*store.ExerciseFilter, error) {
	f, err := r.db.GetExerciseFilter(ctx, id)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, apperr.Missing("exercise filter", id)
	}
	if f.CreatorID != uid {
		return nil, apperr.Forbidden("exercise filter %s belongs to another user", id)
	}
	return f, nil
}

func (r *Resolver) ExerciseFilters(ctx context.Context) ([]*filterResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	filters, err := r.db.ListExerciseFilters(ctx, uid)
	if err != nil {
		return nil, r.fail(err)
	}
	out := make([]*filterResolver, len(filters))
	for i := range filters {
		out[i] = &filterResolver{f: filters[i]}
	}
	return out, nil
}

func (r *Resolver) CreateExerciseFilter(ctx context.Context, args struct {
	Name   string
	Filter filterInput
}) (*filterResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	if err := engine.ValidateName("filter name", args.Name); err != nil {
		return nil, r.fail(err)
	}
	c, err := args.Filter.criteria()
	if err != nil {
		return nil, r.fail(err)
	}
	f, err := r.db.CreateExerciseFilter(ctx, uid, args.Name, c)
	if err != nil {
		return nil, r.storeFail(err, "exercise filter "+args.Name, "")
	}
	return &filterResolver{f: *f}, nil
}

func (r *Resolver) UpdateExerciseFilter(ctx context.Context, args struct {
	ID     graphql.ID
	Name   string
	Filter filterInput
}) (*filterResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	id := string(args.ID)
	if _, err := r.ownFilter(ctx, uid, id); err != nil {
		return nil, r.fail(err)
	}
	if err := engine.ValidateName("filter name", args.Name); err != nil {
		return nil, r.fail(err)
	}
	c, err := args.Filter.criteria()
	if err != nil {
		return nil, r.fail(err)
	}
	f, err := r.db.UpdateExerciseFilter(ctx, id, args.Name, c)
	if err != nil {
		return nil, r.storeFail(err, "exercise filter", id)
	}
	return &filterResolver{f: *f}, nil
}

func (r *Resolver) DeleteExerciseFilter(ctx context.Context, args struct{ ID graphql.ID }) (*filterResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	f, err := r.ownFilter(ctx, uid, string(args.ID))
	if err != nil {
		return nil, r.fail(err)
	}
	if err := r.db.DeleteExerciseFilter(ctx, f.ID); err != nil {
		return nil, r.storeFail(err, "exercise filter", f.ID)
	}
	return &filterResolver{f: *f}, nil
}

func (r *Resolver) Settings(ctx context.Context) (JSON, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return JSON{}, r.fail(err)
	}
	settings, err := r.eng.Settings(ctx, uid)
	if err != nil {
		return JSON{}, r.fail(err)
	}
	return JSON{Value: settings}, nil
}

func (r *Resolver) SettingsURL(ctx context.Context) (string, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return "", r.fail(err)
	}
	url, err := r.eng.SettingsURL(ctx, uid)
	if err != nil {
		return "", r.fail(err)
	}
	return url, nil
}

func (r *Resolver) UpdateSettings(ctx context.Context, args struct{ Settings JSON }) (JSON, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return JSON{}, r.fail(err)
	}
	obj, ok := args.Settings.Object()
	if !ok {
		return JSON{}, r.fail(apperr.BadInput("settings must be a JSON object"))
	}
	settings, err := r.eng.UpdateSettings(ctx, uid, obj)
	if err != nil {
		return JSON{}, r.fail(err)
	}
	return JSON{Value: settings}, nil
}

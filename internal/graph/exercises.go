package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	graphql "github.com/graph-gophers/graphql-go"

	"github.com/lazypower/mnemo/internal/apperr"
	"github.com/lazypower/mnemo/internal/auth"
	"github.com/lazypower/mnemo/internal/engine"
	"github.com/lazypower/mnemo/internal/store"
)

type mediaInput struct {
	Kind    string
	URL     string
	Caption *string
}

type exerciseInput struct {
	Type         string
	LanguageCode *string
	Assignment   JSON
	Solution     JSON
	Hints        *[]string
	Media        *[]mediaInput
	LabelIDs     *[]graphql.ID
}

func (in exerciseInput) engineInput() (engine.ExerciseInput, error) {
	assignment, err := in.Assignment.Raw()
	if err != nil {
		return engine.ExerciseInput{}, apperr.BadInput("assignment: %v", err)
	}
	solution, err := in.Solution.Raw()
	if err != nil {
		return engine.ExerciseInput{}, apperr.BadInput("solution: %v", err)
	}
	out := engine.ExerciseInput{
		Type:         in.Type,
		LanguageCode: deref(in.LanguageCode),
		Assignment:   assignment,
		Solution:     solution,
		LabelIDs:     optIDStrings(in.LabelIDs),
	}
	if in.Hints != nil {
		out.Hints = *in.Hints
	}
	if in.Media != nil {
		for _, m := range *in.Media {
			out.Media = append(out.Media, engine.Media{Kind: m.Kind, URL: m.URL, Caption: deref(m.Caption)})
		}
	}
	return out, nil
}

type filterInput struct {
	CreatorIDs       *[]graphql.ID
	LabelIDs         *[]graphql.ID
	LanguageCodes    *[]string
	MaxCorrectStreak *int32
}

func (in *filterInput) criteria() (store.FilterCriteria, error) {
	var c store.FilterCriteria
	if in == nil {
		return c, nil
	}
	c.CreatorIDs = optIDStrings(in.CreatorIDs)
	c.LabelIDs = optIDStrings(in.LabelIDs)
	if in.LanguageCodes != nil {
		codes, err := engine.CanonicalLanguages(*in.LanguageCodes)
		if err != nil {
			return c, err
		}
		c.LanguageCodes = codes
	}
	if in.MaxCorrectStreak != nil {
		if *in.MaxCorrectStreak < 0 {
			return c, apperr.BadInput("maxCorrectStreak must not be negative")
		}
		n := int(*in.MaxCorrectStreak)
		c.MaxCorrectStreak = &n
	}
	return c, nil
}

type exerciseResolver struct {
	root *Resolver
	e    *store.Exercise
}

func (r *exerciseResolver) ID() graphql.ID { return graphql.ID(r.e.ID) }
func (r *exerciseResolver) Type() string { return r.e.Type }
func (r *exerciseResolver) LanguageCode() string { return r.e.LanguageCode }
func (r *exerciseResolver) CreatedAt() graphql.Time { return toTime(r.e.CreatedAt) }
func (r *exerciseResolver) UpdatedAt() graphql.Time { return toTime(r.e.UpdatedAt) }

func (r *exerciseResolver) MarkedForDeletionAt() *graphql.Time {
	return toTimePtr(r.e.MarkedForDeletionAt)
}

func (r *exerciseResolver) Creator(ctx context.Context) (*userResolver, error) {
	return r.root.loadUser(ctx, r.e.CreatorID)
}

func (r *exerciseResolver) Labels(ctx context.Context) ([]*labelResolver, error) {
	labels, err := r.root.db.LabelsForExercise(ctx, r.e.ID)
	if err != nil {
		return nil, r.root.fail(err)
	}
	return labelResolvers(labels), nil
}

func (r *exerciseResolver) Experience(ctx context.Context) (*experienceResolver, error) {
	uid, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return nil, nil
	}
	x, err := r.root.db.GetExperience(ctx, r.e.ID, uid)
	if err != nil {
		return nil, r.root.fail(err)
	}
	if x == nil {
		return nil, nil
	}
	return &experienceResolver{x: *x}, nil
}

func (r *exerciseResolver) Hydrated(ctx context.Context) (*hydratedResolver, error) {
	h, err := r.root.eng.Hydrate(ctx, r.e.ID)
	if err != nil {
		return nil, r.root.fail(err)
	}
	return &hydratedResolver{root: r.root, h: *h}, nil
}

func (r *exerciseResolver) HydratedURL(ctx context.Context) (string, error) {
	url, err := r.root.eng.HydratedURL(ctx, r.e.ID)
	if err != nil {
		return "", r.root.storeFail(err, "exercise body", r.e.ID)
	}
	return url, nil
}

type experienceResolver struct {
	x store.Experience
}

func (r *experienceResolver) ExerciseID() graphql.ID { return graphql.ID(r.x.ExerciseID) }
func (r *experienceResolver) CorrectStreak() int32 { return int32(r.x.CorrectStreak) }
func (r *experienceResolver) LastStudiedAt() *graphql.Time { return toTimePtr(r.x.LastStudiedAt) }

type hydratedResolver struct {
	root *Resolver
	h    engine.HydratedExercise
}

func (r *hydratedResolver) ID() graphql.ID { return graphql.ID(r.h.ID) }
func (r *hydratedResolver) Type() string { return r.h.Type }
func (r *hydratedResolver) LanguageCode() string { return r.h.LanguageCode }

func (r *hydratedResolver) Assignment() (JSON, error) {
	return r.decode("assignment", r.h.Assignment)
}

func (r *hydratedResolver) Solution() (JSON, error) {
	return r.decode("solution", r.h.Solution)
}

func (r *hydratedResolver) decode(field string, data json.RawMessage) (JSON, error) {
	v, err := rawJSON(data)
	if err != nil {
		return JSON{}, r.root.fail(fmt.Errorf("decode %s of exercise %s: %w", field, r.h.ID, err))
	}
	return v, nil
}

func (r *hydratedResolver) Hints() []string {
	if r.h.Hints == nil {
		return []string{}
	}
	return r.h.Hints
}

func (r *hydratedResolver) Media() []*mediaResolver {
	out := make([]*mediaResolver, len(r.h.Media))
	for i := range r.h.Media {
		out[i] = &mediaResolver{m: r.h.Media[i]}
	}
	return out
}

type mediaResolver struct {
	m engine.Media
}

func (r *mediaResolver) Kind() string { return r.m.Kind }
func (r *mediaResolver) URL() string { return r.m.URL }
func (r *mediaResolver) Caption() *string { return optString(r.m.Caption) }

// visible reports whether uid may see an exercise. Exercises marked for
// deletion are only shown to their creator.
func visible(ex *store.Exercise, uid string) bool {
	return ex.MarkedForDeletionAt == nil || ex.CreatorID == uid
}

func (r *Resolver) Exercise(ctx context.Context, args struct{ ID graphql.ID }) (*exerciseResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	id := string(args.ID)
	ex, err := r.db.GetExercise(ctx, id)
	if err != nil {
		return nil, r.fail(err)
	}
	if ex == nil || !visible(ex, uid) {
		return nil, r.fail(apperr.Missing("exercise", id))
	}
	return &exerciseResolver{root: r, e: ex}, nil
}

func (r *Resolver) Exercises(ctx context.Context, args struct {
	Filter                   *filterInput
	IncludeMarkedForDeletion *bool
}) ([]*exerciseResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	c, err := args.Filter.criteria()
	if err != nil {
		return nil, r.fail(err)
	}
	includeMarked := args.IncludeMarkedForDeletion != nil && *args.IncludeMarkedForDeletion

	rows, err := r.db.ListExercises(ctx, uid, c, includeMarked)
	if err != nil {
		return nil, r.fail(err)
	}
	out := make([]*exerciseResolver, 0, len(rows))
	for i := range rows {
		if visible(&rows[i], uid) {
			out = append(out, &exerciseResolver{root: r, e: &rows[i]})
		}
	}
	return out, nil
}

func (r *Resolver) HydratedExercises(ctx context.Context, args struct{ IDs []graphql.ID }) ([]*hydratedResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	ids := idStrings(args.IDs)
	rows, err := r.db.GetExercises(ctx, ids)
	if err != nil {
		return nil, r.fail(err)
	}
	for i := range rows {
		if !visible(&rows[i], uid) {
			return nil, r.fail(apperr.Missing("exercise", rows[i].ID))
		}
	}

	hydrated, err := r.eng.HydrateMany(ctx, ids)
	if err != nil {
		return nil, r.fail(err)
	}
	out := make([]*hydratedResolver, len(hydrated))
	for i := range hydrated {
		out[i] = &hydratedResolver{root: r, h: hydrated[i]}
	}
	return out, nil
}

func (r *Resolver) NextExercise(ctx context.Context, args struct {
	Filter          *filterInput
	FilterID        *graphql.ID
	CooldownSeconds *int32
}) (*exerciseResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(err)
	}

	var inline *store.FilterCriteria
	if args.Filter != nil {
		c, err := args.Filter.criteria()
		if err != nil {
			return nil, r.fail(err)
		}
		inline = &c
	}
	var filterID *string
	if args.FilterID != nil {
		id := string(*args.FilterID)
		filterID = &id
	}
	c, err := r.eng.ResolveCriteria(ctx, uid, filterID, inline)
	if err != nil {
		return nil, r.fail(err)
	}

	var cooldown *time.Duration
	if args.CooldownSeconds != nil {
		d := time.Duration(*args.CooldownSeconds) * time.Second
		cooldown = &d
	}
	ex, err := r.eng.NextExercise(ctx, uid, c, cooldown)
	if err != nil || ex == nil {
		return nil, r.fail(err)
	}
	return &exerciseResolver{root: r, e: ex}, nil
}

func (r *Resolver) CreateExercise(ctx context.Context, args struct{ Input exerciseInput }) (*exerciseResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	in, err := args.Input.engineInput()
	if err != nil {
		return nil, r.fail(err)
	}
	ex, err := r.eng.CreateExercise(ctx, uid, in)
	if err != nil {
		return nil, r.fail(err)
	}
	return &exerciseResolver{root: r, e: ex}, nil
}

func (r *Resolver) UpdateExercise(ctx context.Context, args struct {
	ID    graphql.ID
	Input exerciseInput
}) (*exerciseResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	in, err := args.Input.engineInput()
	if err != nil {
		return nil, r.fail(err)
	}
	ex, err := r.eng.UpdateExercise(ctx, uid, string(args.ID), in)
	if err != nil {
		return nil, r.fail(err)
	}
	return &exerciseResolver{root: r, e: ex}, nil
}

func (r *Resolver) MarkExerciseForDeletion(ctx context.Context, args struct{ ID graphql.ID }) (*exerciseResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	ex, err := r.eng.MarkExerciseForDeletion(ctx, uid, string(args.ID))
	if err != nil {
		return nil, r.fail(err)
	}
	return &exerciseResolver{root: r, e: ex}, nil
}

func (r *Resolver) RestoreExercise(ctx context.Context, args struct{ ID graphql.ID }) (*exerciseResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	ex, err := r.eng.RestoreExercise(ctx, uid, string(args.ID))
	if err != nil {
		return nil, r.fail(err)
	}
	return &exerciseResolver{root: r, e: ex}, nil
}

func (r *Resolver) RecordAnswer(ctx context.Context, args struct {
	ExerciseID graphql.ID
	Correct    bool
}) (*experienceResolver, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	id := string(args.ExerciseID)
	ex, err := r.db.GetExercise(ctx, id)
	if err != nil {
		return nil, r.fail(err)
	}
	if ex != nil && !visible(ex, uid) {
		return nil, r.fail(apperr.Missing("exercise", id))
	}
	x, err := r.eng.RecordAnswer(ctx, uid, id, args.Correct)
	if err != nil {
		return nil, r.fail(err)
	}
	return &experienceResolver{x: *x}, nil
}

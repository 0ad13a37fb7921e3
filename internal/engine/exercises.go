package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lazypower/mnemo/internal/apperr"
	"github.com/lazypower/mnemo/internal/blob"
	"github.com/lazypower/mnemo/internal/store"
)

// Media is an attachment referenced by a hydrated exercise.
type Media struct {
	Kind    string `json:"kind"`
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

// HydratedExercise is the full exercise document kept in object storage.
type HydratedExercise struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	LanguageCode string          `json:"languageCode"`
	Assignment   json.RawMessage `json:"assignment"`
	Solution     json.RawMessage `json:"solution"`
	Hints        []string        `json:"hints,omitempty"`
	Media        []Media         `json:"media,omitempty"`
}

// ExerciseInput is what a creator submits for a new or edited exercise.
type ExerciseInput struct {
	Type         string
	LanguageCode string // optional; inferred from the assignment when empty
	Assignment   json.RawMessage
	Solution     json.RawMessage
	Hints        []string
	Media        []Media
	LabelIDs     []string
}

func (e *Engine) prepare(ctx context.Context, actorID string, in ExerciseInput) (string, error) {
	if err := validateExerciseType(in.Type); err != nil {
		return "", err
	}
	if len(in.Assignment) == 0 || !json.Valid(in.Assignment) {
		return "", apperr.BadInput("assignment must be a JSON value")
	}
	if len(in.Solution) == 0 || !json.Valid(in.Solution) {
		return "", apperr.BadInput("solution must be a JSON value")
	}
	if err := e.CheckLabels(ctx, actorID, in.LabelIDs); err != nil {
		return "", err
	}
	return resolveLanguage(in.LanguageCode, in.Assignment)
}

func hydratedFrom(id, lang string, in ExerciseInput) HydratedExercise {
	return HydratedExercise{
		ID:           id,
		Type:         in.Type,
		LanguageCode: lang,
		Assignment:   in.Assignment,
		Solution:     in.Solution,
		Hints:        in.Hints,
		Media:        in.Media,
	}
}

// CreateExercise validates the input, writes the body to object storage and
// then inserts the row. The body is removed again if the insert fails.
func (e *Engine) CreateExercise(ctx context.Context, actorID string, in ExerciseInput) (*store.Exercise, error) {
	lang, err := e.prepare(ctx, actorID, in)
	if err != nil {
		return nil, err
	}

	ex := &store.Exercise{
		ID:           store.NewExerciseID(),
		CreatorID:    actorID,
		Type:         in.Type,
		LanguageCode: lang,
	}
	key := blob.ExerciseKey(ex.ID)
	if err := e.Blobs.PutJSON(ctx, key, hydratedFrom(ex.ID, lang, in)); err != nil {
		return nil, fmt.Errorf("store exercise body: %w", err)
	}

	if err := e.DB.CreateExercise(ctx, ex, in.LabelIDs); err != nil {
		if derr := e.Blobs.Delete(ctx, key); derr != nil {
			e.Logger.Warn("orphaned exercise body", zap.String("key", key), zap.Error(derr))
		}
		return nil, StoreError(err, "exercise", ex.ID)
	}

	e.Logger.Debug("exercise created", zap.String("id", ex.ID), zap.String("language", lang))
	return ex, nil
}

// ownedExercise loads an exercise and checks that actorID created it.
func (e *Engine) ownedExercise(ctx context.Context, actorID, id string) (*store.Exercise, error) {
	ex, err := e.DB.GetExercise(ctx, id)
	if err != nil {
		return nil, err
	}
	if ex == nil {
		return nil, apperr.Missing("exercise", id)
	}
	if ex.CreatorID != actorID {
		return nil, apperr.Forbidden("only the creator can change exercise %s", id)
	}
	return ex, nil
}

// UpdateExercise replaces the body, metadata and labels of an exercise.
// If the row update fails the previous body is put back.
func (e *Engine) UpdateExercise(ctx context.Context, actorID, id string, in ExerciseInput) (*store.Exercise, error) {
	ex, err := e.ownedExercise(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	lang, err := e.prepare(ctx, actorID, in)
	if err != nil {
		return nil, err
	}

	key := blob.ExerciseKey(id)
	var previous HydratedExercise
	hadPrevious := true
	if err := e.Blobs.GetJSON(ctx, key, &previous); err != nil {
		if !errors.Is(err, blob.ErrNotFound) {
			return nil, fmt.Errorf("read exercise body: %w", err)
		}
		hadPrevious = false
	}

	if err := e.Blobs.PutJSON(ctx, key, hydratedFrom(id, lang, in)); err != nil {
		return nil, fmt.Errorf("store exercise body: %w", err)
	}

	ex.Type = in.Type
	ex.LanguageCode = lang
	if err := e.DB.UpdateExercise(ctx, ex, in.LabelIDs); err != nil {
		if hadPrevious {
			if rerr := e.Blobs.PutJSON(ctx, key, previous); rerr != nil {
				e.Logger.Error("restore exercise body", zap.String("key", key), zap.Error(rerr))
			}
		}
		return nil, StoreError(err, "exercise", id)
	}
	return ex, nil
}

// MarkExerciseForDeletion soft-deletes an exercise. It stays restorable
// until the purge removes it.
func (e *Engine) MarkExerciseForDeletion(ctx context.Context, actorID, id string) (*store.Exercise, error) {
	if _, err := e.ownedExercise(ctx, actorID, id); err != nil {
		return nil, err
	}
	ex, err := e.DB.MarkExerciseForDeletion(ctx, id, e.now().UnixMilli())
	return ex, StoreError(err, "exercise", id)
}

// RestoreExercise clears a deletion mark.
func (e *Engine) RestoreExercise(ctx context.Context, actorID, id string) (*store.Exercise, error) {
	if _, err := e.ownedExercise(ctx, actorID, id); err != nil {
		return nil, err
	}
	ex, err := e.DB.RestoreExercise(ctx, id)
	return ex, StoreError(err, "exercise", id)
}

// Hydrate returns the full document of one exercise. The row is
// authoritative for type and language.
func (e *Engine) Hydrate(ctx context.Context, id string) (*HydratedExercise, error) {
	ex, err := e.DB.GetExercise(ctx, id)
	if err != nil {
		return nil, err
	}
	if ex == nil {
		return nil, apperr.Missing("exercise", id)
	}
	return e.hydrate(ctx, ex)
}

func (e *Engine) hydrate(ctx context.Context, ex *store.Exercise) (*HydratedExercise, error) {
	var h HydratedExercise
	if err := e.Blobs.GetJSON(ctx, blob.ExerciseKey(ex.ID), &h); err != nil {
		return nil, StoreError(err, "exercise body", ex.ID)
	}
	h.ID = ex.ID
	h.Type = ex.Type
	h.LanguageCode = ex.LanguageCode
	return &h, nil
}

// HydrateMany loads several exercise documents concurrently and returns them
// in the order of ids.
func (e *Engine) HydrateMany(ctx context.Context, ids []string) ([]HydratedExercise, error) {
	rows, err := e.DB.GetExercises(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*store.Exercise, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}
	for _, id := range ids {
		if byID[id] == nil {
			return nil, apperr.Missing("exercise", id)
		}
	}

	out := make([]HydratedExercise, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(hydrateConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			h, err := e.hydrate(gctx, byID[id])
			if err != nil {
				return err
			}
			out[i] = *h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// HydratedURL returns a signed URL for an exercise document.
func (e *Engine) HydratedURL(ctx context.Context, id string) (string, error) {
	ex, err := e.DB.GetExercise(ctx, id)
	if err != nil {
		return "", err
	}
	if ex == nil {
		return "", apperr.Missing("exercise", id)
	}
	return e.Blobs.SignedURL(ctx, blob.ExerciseKey(id), e.opts.URLExpiry)
}

package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lazypower/mnemo/internal/apperr"
	"github.com/lazypower/mnemo/internal/store"
)

// ResolveCriteria picks the criteria for a study query: a saved filter owned
// by the learner, an inline filter, or none. Passing both is an error.
func (e *Engine) ResolveCriteria(ctx context.Context, learnerID string, filterID *string, inline *store.FilterCriteria) (store.FilterCriteria, error) {
	if filterID != nil && inline != nil {
		return store.FilterCriteria{}, apperr.BadInput("pass either filterId or filter, not both")
	}
	if inline != nil {
		c := *inline
		codes, err := CanonicalLanguages(c.LanguageCodes)
		if err != nil {
			return store.FilterCriteria{}, err
		}
		c.LanguageCodes = codes
		return c, nil
	}
	if filterID == nil {
		return store.FilterCriteria{}, nil
	}

	f, err := e.DB.GetExerciseFilter(ctx, *filterID)
	if err != nil {
		return store.FilterCriteria{}, err
	}
	if f == nil {
		return store.FilterCriteria{}, apperr.Missing("exercise filter", *filterID)
	}
	if f.CreatorID != learnerID {
		return store.FilterCriteria{}, apperr.Forbidden("exercise filter %s belongs to another user", *filterID)
	}
	return f.Criteria, nil
}

// NextExercise returns the exercise the learner should study now, or nil if
// nothing matching c is due. A nil cooldown uses the configured default.
func (e *Engine) NextExercise(ctx context.Context, learnerID string, c store.FilterCriteria, cooldown *time.Duration) (*store.Exercise, error) {
	wait := *e.opts.Cooldown
	if cooldown != nil {
		if *cooldown < 0 {
			return nil, apperr.BadInput("cooldown must not be negative")
		}
		wait = *cooldown
	}
	codes, err := CanonicalLanguages(c.LanguageCodes)
	if err != nil {
		return nil, err
	}
	c.LanguageCodes = codes

	studiedBefore := e.now().Add(-wait).UnixMilli()
	return e.DB.NextExercise(ctx, learnerID, c, studiedBefore)
}

// RecordAnswer updates the learner's streak for an exercise.
func (e *Engine) RecordAnswer(ctx context.Context, learnerID, exerciseID string, correct bool) (*store.Experience, error) {
	ex, err := e.DB.GetExercise(ctx, exerciseID)
	if err != nil {
		return nil, err
	}
	if ex == nil {
		return nil, apperr.Missing("exercise", exerciseID)
	}
	if ex.MarkedForDeletionAt != nil {
		return nil, apperr.New(apperr.Conflict, "exercise %s is marked for deletion", exerciseID)
	}

	x, err := e.DB.RecordAnswer(ctx, exerciseID, learnerID, correct, e.now().UnixMilli())
	if err != nil {
		return nil, err
	}
	e.Logger.Debug("answer recorded",
		zap.String("exercise", exerciseID),
		zap.Bool("correct", correct),
		zap.Int("streak", x.CorrectStreak))
	return x, nil
}

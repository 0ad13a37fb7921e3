package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lazypower/mnemo/internal/apperr"
	"github.com/lazypower/mnemo/internal/blob"
	"github.com/lazypower/mnemo/internal/store"
)

func TestResolveCriteria(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ada@example.com")
	other := f.user(t, "alan@example.com")

	saved, err := f.db.CreateExerciseFilter(ctx, u.ID, "Korean", store.FilterCriteria{LanguageCodes: []string{"ko"}})
	require.NoError(t, err)
	inline := &store.FilterCriteria{LanguageCodes: []string{"ja"}}

	c, err := f.eng.ResolveCriteria(ctx, u.ID, nil, nil)
	require.NoError(t, err)
	assert.True(t, c.IsZero())

	c, err = f.eng.ResolveCriteria(ctx, u.ID, &saved.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"ko"}, c.LanguageCodes)

	c, err = f.eng.ResolveCriteria(ctx, u.ID, nil, inline)
	require.NoError(t, err)
	assert.Equal(t, []string{"ja"}, c.LanguageCodes)

	_, err = f.eng.ResolveCriteria(ctx, u.ID, &saved.ID, inline)
	assert.True(t, apperr.Is(err, apperr.BadUserInput))

	_, err = f.eng.ResolveCriteria(ctx, other.ID, &saved.ID, nil)
	assert.True(t, apperr.Is(err, apperr.Authorization))

	missing := "missing"
	_, err = f.eng.ResolveCriteria(ctx, u.ID, &missing, nil)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestNextExerciseCooldown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ada@example.com")
	ex, err := f.eng.CreateExercise(ctx, u.ID, koreanInput())
	require.NoError(t, err)

	next, err := f.eng.NextExercise(ctx, u.ID, store.FilterCriteria{}, nil)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, ex.ID, next.ID)

	_, err = f.eng.RecordAnswer(ctx, u.ID, ex.ID, true)
	require.NoError(t, err)

	next, err = f.eng.NextExercise(ctx, u.ID, store.FilterCriteria{}, nil)
	require.NoError(t, err)
	assert.Nil(t, next, "just studied, default cooldown applies")

	zero := time.Duration(0)
	f.now = f.now.Add(time.Millisecond)
	next, err = f.eng.NextExercise(ctx, u.ID, store.FilterCriteria{}, &zero)
	require.NoError(t, err)
	require.NotNil(t, next)

	f.now = f.now.Add(defaultCooldown)
	next, err = f.eng.NextExercise(ctx, u.ID, store.FilterCriteria{}, nil)
	require.NoError(t, err)
	require.NotNil(t, next)

	negative := -time.Second
	_, err = f.eng.NextExercise(ctx, u.ID, store.FilterCriteria{}, &negative)
	assert.True(t, apperr.Is(err, apperr.BadUserInput))
}

func TestRecordAnswer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ada@example.com")
	ex, err := f.eng.CreateExercise(ctx, u.ID, koreanInput())
	require.NoError(t, err)

	x, err := f.eng.RecordAnswer(ctx, u.ID, ex.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 1, x.CorrectStreak)
	require.NotNil(t, x.LastStudiedAt)
	assert.Equal(t, f.now.UnixMilli(), *x.LastStudiedAt)

	x, err = f.eng.RecordAnswer(ctx, u.ID, ex.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 0, x.CorrectStreak)

	_, err = f.eng.RecordAnswer(ctx, u.ID, "missing", true)
	assert.True(t, apperr.Is(err, apperr.NotFound))

	_, err = f.eng.MarkExerciseForDeletion(ctx, u.ID, ex.ID)
	require.NoError(t, err)
	_, err = f.eng.RecordAnswer(ctx, u.ID, ex.ID, true)
	assert.True(t, apperr.Is(err, apperr.Conflict))
}

func TestSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.eng.Settings(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, s)

	_, err = f.eng.UpdateSettings(ctx, "u1", map[string]any{"theme": "dark"})
	require.NoError(t, err)

	s, err = f.eng.Settings(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"theme": "dark"}, s)

	_, err = f.eng.UpdateSettings(ctx, "u1", nil)
	assert.True(t, apperr.Is(err, apperr.BadUserInput))
}

func TestSettingsURLCreatesDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	url, err := f.eng.SettingsURL(ctx, "u2")
	require.NoError(t, err)
	assert.Contains(t, url, blob.SettingsKey("u2"))
	assert.Equal(t, []string{blob.SettingsKey("u2")}, f.blobs.Keys("users/"))
}

func TestPurgeMarked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ada@example.com")
	old, err := f.eng.CreateExercise(ctx, u.ID, koreanInput())
	require.NoError(t, err)
	recent, err := f.eng.CreateExercise(ctx, u.ID, koreanInput())
	require.NoError(t, err)
	kept, err := f.eng.CreateExercise(ctx, u.ID, koreanInput())
	require.NoError(t, err)

	_, err = f.eng.MarkExerciseForDeletion(ctx, u.ID, old.ID)
	require.NoError(t, err)
	f.now = f.now.Add(defaultPurgeAfter)
	_, err = f.eng.MarkExerciseForDeletion(ctx, u.ID, recent.ID)
	require.NoError(t, err)
	f.now = f.now.Add(time.Hour)

	removed, err := f.eng.PurgeMarked(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	gone, err := f.db.GetExercise(ctx, old.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	assert.ElementsMatch(t,
		[]string{blob.ExerciseKey(recent.ID), blob.ExerciseKey(kept.ID)},
		f.blobs.Keys("exercises/"))
}

func TestPurgeTimerStops(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ada@example.com")
	ex, err := f.eng.CreateExercise(ctx, u.ID, koreanInput())
	require.NoError(t, err)
	_, err = f.eng.MarkExerciseForDeletion(ctx, u.ID, ex.ID)
	require.NoError(t, err)
	f.now = f.now.Add(defaultPurgeAfter + time.Minute)

	f.eng.StartPurgeTimer(time.Hour)
	f.eng.Stop()
	f.eng.Stop()

	gone, err := f.db.GetExercise(ctx, ex.ID)
	require.NoError(t, err)
	assert.Nil(t, gone, "startup purge ran")
}

func TestPurgeTimerNonPositiveInterval(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Minute} {
		t.Run(interval.String(), func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			u := f.user(t, "ada@example.com")
			ex, err := f.eng.CreateExercise(ctx, u.ID, koreanInput())
			require.NoError(t, err)
			_, err = f.eng.MarkExerciseForDeletion(ctx, u.ID, ex.ID)
			require.NoError(t, err)
			f.now = f.now.Add(defaultPurgeAfter + time.Minute)

			require.NotPanics(t, func() { f.eng.StartPurgeTimer(interval) })
			f.eng.Stop()

			gone, err := f.db.GetExercise(ctx, ex.ID)
			require.NoError(t, err)
			assert.Nil(t, gone, "startup purge still ran")
		})
	}
}

func TestZeroCooldownOption(t *testing.T) {
	f := newFixture(t)
	zero := time.Duration(0)
	f.eng = New(f.db, f.blobs, zap.NewNop(), Options{Cooldown: &zero})
	f.eng.now = func() time.Time { return f.now }
	ctx := context.Background()
	u := f.user(t, "ada@example.com")
	ex, err := f.eng.CreateExercise(ctx, u.ID, koreanInput())
	require.NoError(t, err)

	_, err = f.eng.RecordAnswer(ctx, u.ID, ex.ID, true)
	require.NoError(t, err)
	f.now = f.now.Add(time.Millisecond)

	next, err := f.eng.NextExercise(ctx, u.ID, store.FilterCriteria{}, nil)
	require.NoError(t, err)
	require.NotNil(t, next, "configured zero cooldown is not replaced by the default")
	assert.Equal(t, ex.ID, next.ID)
}

func TestNextExerciseCanonicalLanguage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ada@example.com")
	in := koreanInput()
	in.LanguageCode = "en-us"
	ex, err := f.eng.CreateExercise(ctx, u.ID, in)
	require.NoError(t, err)
	require.Equal(t, "en-US", ex.LanguageCode)

	next, err := f.eng.NextExercise(ctx, u.ID, store.FilterCriteria{LanguageCodes: []string{"en-us"}}, nil)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, ex.ID, next.ID)

	c, err := f.eng.ResolveCriteria(ctx, u.ID, nil, &store.FilterCriteria{LanguageCodes: []string{"EN-US"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"en-US"}, c.LanguageCodes)

	_, err = f.eng.NextExercise(ctx, u.ID, store.FilterCriteria{LanguageCodes: []string{"!!"}}, nil)
	assert.True(t, apperr.Is(err, apperr.LanguageUndetermined))
}

package client

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/lazypower/mnemo/internal/apperr"
)

const exerciseTypename = "Exercise"

// Exercise is the subset of an exercise the CLI works with.
type Exercise struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	LanguageCode string          `json:"languageCode"`
	Assignment   json.RawMessage `json:"assignment"`
	Solution     json.RawMessage `json:"solution"`
	Hints        []string        `json:"hints"`
	Streak       int             `json:"correctStreak"`
	Marked       bool            `json:"-"`
}

// Experience is a learner's progress on one exercise.
type Experience struct {
	ExerciseID    string     `json:"exerciseId"`
	CorrectStreak int        `json:"correctStreak"`
	LastStudiedAt *time.Time `json:"lastStudiedAt"`
}

// LogIn exchanges credentials for a bearer token.
func (c *Client) LogIn(ctx context.Context, email, password string) (string, error) {
	var data struct {
		LogIn struct {
			Token string `json:"token"`
		} `json:"logIn"`
	}
	err := c.Do(ctx, `mutation($email: String!, $password: String!) {
		logIn(email: $email, password: $password) { token }
	}`, map[string]any{"email": email, "password": password}, &data)
	if err != nil {
		return "", err
	}
	return data.LogIn.Token, nil
}

// NextExercise fetches the exercise to study now, or nil if nothing is due.
// filterID and cooldown are optional.
func (c *Client) NextExercise(ctx context.Context, filterID string, cooldown *time.Duration) (*Exercise, error) {
	vars := map[string]any{}
	if filterID != "" {
		vars["filterId"] = filterID
	}
	if cooldown != nil {
		vars["cooldown"] = int(cooldown.Seconds())
	}

	var data struct {
		NextExercise *struct {
			ID         string `json:"id"`
			Experience *struct {
				CorrectStreak int `json:"correctStreak"`
			} `json:"experience"`
			Hydrated Exercise `json:"hydrated"`
		} `json:"nextExercise"`
	}
	err := c.Do(ctx, `query($filterId: ID, $cooldown: Int) {
		nextExercise(filterId: $filterId, cooldownSeconds: $cooldown) {
			id
			experience { correctStreak }
			hydrated { id type languageCode assignment solution hints }
		}
	}`, vars, &data)
	if err != nil || data.NextExercise == nil {
		return nil, err
	}

	ex := data.NextExercise.Hydrated
	if data.NextExercise.Experience != nil {
		ex.Streak = data.NextExercise.Experience.CorrectStreak
	}
	c.cache.Write(Entity{Typename: exerciseTypename, ID: ex.ID, Fields: map[string]any{
		"type":          ex.Type,
		"languageCode":  ex.LanguageCode,
		"correctStreak": ex.Streak,
	}})
	return &ex, nil
}

// RecordAnswer reports an answer and updates the cached streak.
func (c *Client) RecordAnswer(ctx context.Context, exerciseID string, correct bool) (*Experience, error) {
	var data struct {
		RecordAnswer Experience `json:"recordAnswer"`
	}
	err := c.Do(ctx, `mutation($id: ID!, $correct: Boolean!) {
		recordAnswer(exerciseId: $id, correct: $correct) { exerciseId correctStreak lastStudiedAt }
	}`, map[string]any{"id": exerciseID, "correct": correct}, &data)
	if apperr.Is(err, apperr.NotFound) {
		c.cache.Evict(exerciseTypename, exerciseID)
	}
	if err != nil {
		return nil, err
	}
	c.cache.Write(Entity{Typename: exerciseTypename, ID: exerciseID, Fields: map[string]any{
		"correctStreak": data.RecordAnswer.CorrectStreak,
	}})
	return &data.RecordAnswer, nil
}

// exerciseRow is the list shape of an exercise on the wire.
type exerciseRow struct {
	ID                  string     `json:"id"`
	Type                string     `json:"type"`
	LanguageCode        string     `json:"languageCode"`
	MarkedForDeletionAt *time.Time `json:"markedForDeletionAt"`
	Experience          *struct {
		CorrectStreak int `json:"correctStreak"`
	} `json:"experience"`
}

const exerciseRowFields = `id type languageCode markedForDeletionAt experience { correctStreak }`

func (r exerciseRow) entity() Entity {
	streak := 0
	if r.Experience != nil {
		streak = r.Experience.CorrectStreak
	}
	return Entity{Typename: exerciseTypename, ID: r.ID, Fields: map[string]any{
		"type":          r.Type,
		"languageCode":  r.LanguageCode,
		"correctStreak": streak,
		"marked":        r.MarkedForDeletionAt != nil,
	}}
}

func exerciseFromEntity(e Entity) Exercise {
	ex := Exercise{ID: e.ID}
	ex.Type, _ = e.Fields["type"].(string)
	ex.LanguageCode, _ = e.Fields["languageCode"].(string)
	ex.Streak, _ = e.Fields["correctStreak"].(int)
	ex.Marked, _ = e.Fields["marked"].(bool)
	return ex
}

// exerciseListName names the cached list for a language selection. An
// empty selection is every language.
func exerciseListName(languages []string) string {
	codes := make([]string, len(languages))
	for i, l := range languages {
		codes[i] = strings.ToLower(l)
	}
	slices.Sort(codes)
	return "exercises?lang=" + strings.Join(codes, ",")
}

// matchExercise accepts unmarked exercises in one of languages.
func matchExercise(languages []string) Predicate {
	return func(e Entity) bool {
		if marked, _ := e.Fields["marked"].(bool); marked {
			return false
		}
		if len(languages) == 0 {
			return true
		}
		code, _ := e.Fields["languageCode"].(string)
		return slices.ContainsFunc(languages, func(l string) bool { return strings.EqualFold(l, code) })
	}
}

// Exercises lists the exercises in the given languages that are not marked
// for deletion, and caches the list so later mutations keep it current.
func (c *Client) Exercises(ctx context.Context, languages []string) ([]Exercise, error) {
	vars := map[string]any{}
	if len(languages) > 0 {
		vars["filter"] = map[string]any{"languageCodes": languages}
	}
	var data struct {
		Exercises []exerciseRow `json:"exercises"`
	}
	err := c.Do(ctx, `query($filter: ExerciseFilterInput) {
		exercises(filter: $filter) { `+exerciseRowFields+` }
	}`, vars, &data)
	if err != nil {
		return nil, err
	}

	entities := make([]Entity, len(data.Exercises))
	for i, row := range data.Exercises {
		entities[i] = row.entity()
	}
	c.cache.SetList(exerciseListName(languages), exerciseTypename, entities, matchExercise(languages))
	out, _ := c.CachedExercises(languages)
	return out, nil
}

// CachedExercises returns the cached list for languages as it stands after
// any mutations made through this client. ok is false if Exercises was
// never called for that selection.
func (c *Client) CachedExercises(languages []string) ([]Exercise, bool) {
	entities, ok := c.cache.List(exerciseListName(languages))
	if !ok {
		return nil, false
	}
	out := make([]Exercise, len(entities))
	for i, e := range entities {
		out[i] = exerciseFromEntity(e)
	}
	return out, true
}

// MarkExercise marks an exercise for deletion. It leaves every cached list.
func (c *Client) MarkExercise(ctx context.Context, id string) (*Exercise, error) {
	return c.exerciseMutation(ctx, "markExerciseForDeletion", id, c.cache.Write)
}

// RestoreExercise lifts a deletion mark. The exercise rejoins every cached
// list it matches.
func (c *Client) RestoreExercise(ctx context.Context, id string) (*Exercise, error) {
	return c.exerciseMutation(ctx, "restoreExercise", id, c.cache.Insert)
}

func (c *Client) exerciseMutation(ctx context.Context, field, id string, save func(Entity)) (*Exercise, error) {
	var data map[string]exerciseRow
	err := c.Do(ctx, `mutation($id: ID!) { `+field+`(id: $id) { `+exerciseRowFields+` } }`,
		map[string]any{"id": id}, &data)
	if apperr.Is(err, apperr.NotFound) {
		c.cache.Evict(exerciseTypename, id)
	}
	if err != nil {
		return nil, err
	}
	e := data[field].entity()
	save(e)
	ex := exerciseFromEntity(e)
	return &ex, nil
}

// Cache exposes the entities this client has seen.
func (c *Client) Cache() *Cache {
	return c.cache
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Exercise is the relational half of an exercise. The body lives in object
// storage under the same id.
type Exercise struct {
	ID                  string
	CreatorID           string
	Type                string
	LanguageCode        string
	CreatedAt           int64
	UpdatedAt           int64
	MarkedForDeletionAt *int64
}

// FilterCriteria selects exercises. Empty slices and a nil streak mean "any".
// It is also the persisted shape of a saved ExerciseFilter.
type FilterCriteria struct {
	CreatorIDs       []string `json:"creatorIds,omitempty"`
	LabelIDs         []string `json:"labelIds,omitempty"`
	LanguageCodes    []string `json:"languageCodes,omitempty"`
	MaxCorrectStreak *int     `json:"maxCorrectStreak,omitempty"`
}

// IsZero reports whether c matches every exercise.
func (c FilterCriteria) IsZero() bool {
	return len(c.CreatorIDs) == 0 && len(c.LabelIDs) == 0 && len(c.LanguageCodes) == 0 && c.MaxCorrectStreak == nil
}

// where renders the creator/label/language clauses for an exercise aliased e.
// The streak bound depends on the caller's join and is not included.
func (c FilterCriteria) where() ([]string, []any) {
	var clauses []string
	var args []any
	if len(c.CreatorIDs) > 0 {
		clauses = append(clauses, `e.creator_id IN (`+placeholders(len(c.CreatorIDs))+`)`)
		args = append(args, stringArgs(c.CreatorIDs)...)
	}
	if len(c.LabelIDs) > 0 {
		clauses = append(clauses, `EXISTS (SELECT 1 FROM exercise_labels el WHERE el.exercise_id = e.id AND el.label_id IN (`+placeholders(len(c.LabelIDs))+`))`)
		args = append(args, stringArgs(c.LabelIDs)...)
	}
	if len(c.LanguageCodes) > 0 {
		clauses = append(clauses, `e.language_code IN (`+placeholders(len(c.LanguageCodes))+`)`)
		args = append(args, stringArgs(c.LanguageCodes)...)
	}
	return clauses, args
}

const exerciseColumns = `e.id, e.creator_id, e.type, e.language_code, e.created_at, e.updated_at, e.marked_for_deletion_at`

func scanExercise(row interface{ Scan(...any) error }) (*Exercise, error) {
	var e Exercise
	if err := row.Scan(&e.ID, &e.CreatorID, &e.Type, &e.LanguageCode, &e.CreatedAt, &e.UpdatedAt, &e.MarkedForDeletionAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func scanExercises(rows *sql.Rows) ([]Exercise, error) {
	var out []Exercise
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exercise: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// NewExerciseID returns a fresh id. Callers need it before the row exists
// because the body is written to object storage first.
func NewExerciseID() string {
	return newID()
}

// CreateExercise inserts e and its label links. e.ID must be set; timestamps
// are filled in.
func (db *DB) CreateExercise(ctx context.Context, e *Exercise, labelIDs []string) error {
	if e.ID == "" {
		e.ID = newID()
	}
	now := nowMillis()
	e.CreatedAt, e.UpdatedAt = now, now

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create exercise: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, db.rebind(`
		INSERT INTO exercises (id, creator_id, type, language_code, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), e.ID, e.CreatorID, e.Type, e.LanguageCode, e.CreatedAt, e.UpdatedAt); err != nil {
		return conflictOr(err, "create exercise")
	}
	if err := db.replaceLinks(ctx, tx, "exercise_labels", "exercise_id", e.ID, labelIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create exercise: %w", err)
	}
	return nil
}

// GetExercise returns an exercise by id, or nil if not found. Exercises
// marked for deletion are still returned.
func (db *DB) GetExercise(ctx context.Context, id string) (*Exercise, error) {
	e, err := scanExercise(db.QueryRowContext(ctx, db.rebind(`SELECT `+exerciseColumns+` FROM exercises e WHERE e.id = ?`), id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get exercise: %w", err)
	}
	return e, nil
}

// GetExercises returns the exercises with the given ids that exist, in no
// particular order.
func (db *DB) GetExercises(ctx context.Context, ids []string) ([]Exercise, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := db.QueryContext(ctx, db.rebind(`
		SELECT `+exerciseColumns+` FROM exercises e WHERE e.id IN (`+placeholders(len(ids))+`)
	`), stringArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("get exercises: %w", err)
	}
	defer rows.Close()
	return scanExercises(rows)
}

// UpdateExercise rewrites type, language and labels.
func (db *DB) UpdateExercise(ctx context.Context, e *Exercise, labelIDs []string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update exercise: %w", err)
	}
	defer tx.Rollback()

	now := nowMillis()
	result, err := tx.ExecContext(ctx, db.rebind(`
		UPDATE exercises SET type = ?, language_code = ?, updated_at = ? WHERE id = ?
	`), e.Type, e.LanguageCode, now, e.ID)
	if err != nil {
		return fmt.Errorf("update exercise: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("update exercise %s: %w", e.ID, ErrNotFound)
	}
	if err := db.replaceLinks(ctx, tx, "exercise_labels", "exercise_id", e.ID, labelIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update exercise: %w", err)
	}
	e.UpdatedAt = now
	return nil
}

// ListExercises returns exercises matching c, newest first. The streak bound
// is evaluated against learnerID's experience; unseen exercises count as
// streak zero.
func (db *DB) ListExercises(ctx context.Context, learnerID string, c FilterCriteria, includeMarked bool) ([]Exercise, error) {
	where, args := c.where()
	joinArgs := []any{learnerID}
	if !includeMarked {
		where = append(where, `e.marked_for_deletion_at IS NULL`)
	}
	if c.MaxCorrectStreak != nil {
		where = append(where, `COALESCE(x.correct_streak, 0) <= ?`)
		args = append(args, *c.MaxCorrectStreak)
	}

	query := `SELECT ` + exerciseColumns + ` FROM exercises e
		LEFT JOIN experiences x ON x.exercise_id = e.id AND x.learner_id = ?`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY e.created_at DESC`

	rows, err := db.QueryContext(ctx, db.rebind(query), append(joinArgs, args...)...)
	if err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}
	defer rows.Close()
	return scanExercises(rows)
}

// MarkExerciseForDeletion soft-deletes an exercise at the given time.
// Marking an already marked exercise keeps the original timestamp.
func (db *DB) MarkExerciseForDeletion(ctx context.Context, id string, at int64) (*Exercise, error) {
	result, err := db.ExecContext(ctx, db.rebind(`
		UPDATE exercises SET marked_for_deletion_at = COALESCE(marked_for_deletion_at, ?), updated_at = ?
		WHERE id = ?
	`), at, at, id)
	if err != nil {
		return nil, fmt.Errorf("mark exercise: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("mark exercise %s: %w", id, ErrNotFound)
	}
	return db.GetExercise(ctx, id)
}

// RestoreExercise clears the deletion mark.
func (db *DB) RestoreExercise(ctx context.Context, id string) (*Exercise, error) {
	result, err := db.ExecContext(ctx, db.rebind(`
		UPDATE exercises SET marked_for_deletion_at = NULL, updated_at = ? WHERE id = ?
	`), nowMillis(), id)
	if err != nil {
		return nil, fmt.Errorf("restore exercise: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("restore exercise %s: %w", id, ErrNotFound)
	}
	return db.GetExercise(ctx, id)
}

// ListMarkedBefore returns the ids of exercises marked for deletion before cutoff.
func (db *DB) ListMarkedBefore(ctx context.Context, cutoff int64) ([]string, error) {
	rows, err := db.QueryContext(ctx, db.rebind(`
		SELECT id FROM exercises
		WHERE marked_for_deletion_at IS NOT NULL AND marked_for_deletion_at < ?
		ORDER BY marked_for_deletion_at
	`), cutoff)
	if err != nil {
		return nil, fmt.Errorf("list marked exercises: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan exercise id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteExercise removes an exercise row; labels and experiences cascade.
func (db *DB) DeleteExercise(ctx context.Context, id string) error {
	result, err := db.ExecContext(ctx, db.rebind(`DELETE FROM exercises WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete exercise: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("delete exercise %s: %w", id, ErrNotFound)
	}
	return nil
}

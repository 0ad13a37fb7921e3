package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// ExerciseFilter is a named, saved FilterCriteria.
type ExerciseFilter struct {
	ID        string
	CreatorID string
	Name      string
	Criteria  FilterCriteria
	CreatedAt int64
	UpdatedAt int64
}

const filterColumns = `id, creator_id, name, definition, created_at, updated_at`

func scanFilter(row interface{ Scan(...any) error }) (*ExerciseFilter, error) {
	var f ExerciseFilter
	var definition string
	if err := row.Scan(&f.ID, &f.CreatorID, &f.Name, &definition, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(definition), &f.Criteria); err != nil {
		return nil, fmt.Errorf("decode filter %s: %w", f.ID, err)
	}
	return &f, nil
}

// CreateExerciseFilter saves criteria under a name unique to the creator.
func (db *DB) CreateExerciseFilter(ctx context.Context, creatorID, name string, c FilterCriteria) (*ExerciseFilter, error) {
	definition, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode filter: %w", err)
	}
	now := nowMillis()
	f := &ExerciseFilter{ID: newID(), CreatorID: creatorID, Name: name, Criteria: c, CreatedAt: now, UpdatedAt: now}
	_, err = db.ExecContext(ctx, db.rebind(`
		INSERT INTO exercise_filters (id, creator_id, name, definition, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), f.ID, f.CreatorID, f.Name, string(definition), f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return nil, conflictOr(err, "create exercise filter")
	}
	return f, nil
}

// GetExerciseFilter returns a saved filter, or nil if not found.
func (db *DB) GetExerciseFilter(ctx context.Context, id string) (*ExerciseFilter, error) {
	f, err := scanFilter(db.QueryRowContext(ctx, db.rebind(`SELECT `+filterColumns+` FROM exercise_filters WHERE id = ?`), id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get exercise filter: %w", err)
	}
	return f, nil
}

// ListExerciseFilters returns a creator's saved filters ordered by name.
func (db *DB) ListExerciseFilters(ctx context.Context, creatorID string) ([]ExerciseFilter, error) {
	rows, err := db.QueryContext(ctx, db.rebind(`
		SELECT `+filterColumns+` FROM exercise_filters WHERE creator_id = ? ORDER BY name
	`), creatorID)
	if err != nil {
		return nil, fmt.Errorf("list exercise filters: %w", err)
	}
	defer rows.Close()

	var filters []ExerciseFilter
	for rows.Next() {
		f, err := scanFilter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exercise filter: %w", err)
		}
		filters = append(filters, *f)
	}
	return filters, rows.Err()
}

// UpdateExerciseFilter renames a filter and replaces its criteria.
func (db *DB) UpdateExerciseFilter(ctx context.Context, id, name string, c FilterCriteria) (*ExerciseFilter, error) {
	definition, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode filter: %w", err)
	}
	result, err := db.ExecContext(ctx, db.rebind(`
		UPDATE exercise_filters SET name = ?, definition = ?, updated_at = ? WHERE id = ?
	`), name, string(definition), nowMillis(), id)
	if err != nil {
		return nil, conflictOr(err, "update exercise filter")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("update exercise filter %s: %w", id, ErrNotFound)
	}
	return db.GetExerciseFilter(ctx, id)
}

// DeleteExerciseFilter removes a saved filter.
func (db *DB) DeleteExerciseFilter(ctx context.Context, id string) error {
	result, err := db.ExecContext(ctx, db.rebind(`DELETE FROM exercise_filters WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete exercise filter: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("delete exercise filter %s: %w", id, ErrNotFound)
	}
	return nil
}

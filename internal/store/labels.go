package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Label is a user-owned tag attached to notes and exercises.
type Label struct {
	ID        string
	CreatorID string
	Name      string
	Color     string
	CreatedAt int64
}

const labelColumns = `l.id, l.creator_id, l.name, COALESCE(l.color, ''), l.created_at`

func scanLabels(rows *sql.Rows) ([]Label, error) {
	var labels []Label
	for rows.Next() {
		var l Label
		if err := rows.Scan(&l.ID, &l.CreatorID, &l.Name, &l.Color, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

// CreateLabel inserts a label. Names are unique per creator.
func (db *DB) CreateLabel(ctx context.Context, creatorID, name, color string) (*Label, error) {
	l := &Label{
		ID:        newID(),
		CreatorID: creatorID,
		Name:      name,
		Color:     color,
		CreatedAt: nowMillis(),
	}
	_, err := db.ExecContext(ctx, db.rebind(`
		INSERT INTO labels (id, creator_id, name, color, created_at)
		VALUES (?, ?, ?, NULLIF(?, ''), ?)
	`), l.ID, l.CreatorID, l.Name, l.Color, l.CreatedAt)
	if err != nil {
		return nil, conflictOr(err, "create label")
	}
	return l, nil
}

// GetLabel returns a label by id, or nil if not found.
func (db *DB) GetLabel(ctx context.Context, id string) (*Label, error) {
	var l Label
	err := db.QueryRowContext(ctx, db.rebind(`SELECT `+labelColumns+` FROM labels l WHERE l.id = ?`), id).
		Scan(&l.ID, &l.CreatorID, &l.Name, &l.Color, &l.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get label: %w", err)
	}
	return &l, nil
}

// GetLabels returns the labels with the given ids that exist.
func (db *DB) GetLabels(ctx context.Context, ids []string) ([]Label, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := db.QueryContext(ctx, db.rebind(`
		SELECT `+labelColumns+` FROM labels l WHERE l.id IN (`+placeholders(len(ids))+`)
	`), stringArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("get labels: %w", err)
	}
	defer rows.Close()
	return scanLabels(rows)
}

// ListLabels returns a creator's labels ordered by name.
func (db *DB) ListLabels(ctx context.Context, creatorID string) ([]Label, error) {
	rows, err := db.QueryContext(ctx, db.rebind(`
		SELECT `+labelColumns+` FROM labels l WHERE l.creator_id = ? ORDER BY l.name
	`), creatorID)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	defer rows.Close()
	return scanLabels(rows)
}

// UpdateLabel renames or recolors a label.
func (db *DB) UpdateLabel(ctx context.Context, id, name, color string) (*Label, error) {
	result, err := db.ExecContext(ctx, db.rebind(`
		UPDATE labels SET name = ?, color = NULLIF(?, '') WHERE id = ?
	`), name, color, id)
	if err != nil {
		return nil, conflictOr(err, "update label")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("update label %s: %w", id, ErrNotFound)
	}
	return db.GetLabel(ctx, id)
}

// DeleteLabel removes a label; its note and exercise links cascade.
func (db *DB) DeleteLabel(ctx context.Context, id string) error {
	result, err := db.ExecContext(ctx, db.rebind(`DELETE FROM labels WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete label: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("delete label %s: %w", id, ErrNotFound)
	}
	return nil
}

// LabelsForNote returns the labels attached to a note.
func (db *DB) LabelsForNote(ctx context.Context, noteID string) ([]Label, error) {
	rows, err := db.QueryContext(ctx, db.rebind(`
		SELECT `+labelColumns+` FROM labels l
		JOIN note_labels nl ON nl.label_id = l.id
		WHERE nl.note_id = ? ORDER BY l.name
	`), noteID)
	if err != nil {
		return nil, fmt.Errorf("labels for note: %w", err)
	}
	defer rows.Close()
	return scanLabels(rows)
}

// LabelsForExercise returns the labels attached to an exercise.
func (db *DB) LabelsForExercise(ctx context.Context, exerciseID string) ([]Label, error) {
	rows, err := db.QueryContext(ctx, db.rebind(`
		SELECT `+labelColumns+` FROM labels l
		JOIN exercise_labels el ON el.label_id = l.id
		WHERE el.exercise_id = ? ORDER BY l.name
	`), exerciseID)
	if err != nil {
		return nil, fmt.Errorf("labels for exercise: %w", err)
	}
	defer rows.Close()
	return scanLabels(rows)
}

// replaceLinks rewrites a join table's rows for one owner inside tx.
func (db *DB) replaceLinks(ctx context.Context, tx *sql.Tx, table, ownerCol, ownerID string, labelIDs []string) error {
	if _, err := tx.ExecContext(ctx, db.rebind(`DELETE FROM `+table+` WHERE `+ownerCol+` = ?`), ownerID); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	seen := make(map[string]bool, len(labelIDs))
	for _, id := range labelIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := tx.ExecContext(ctx, db.rebind(`INSERT INTO `+table+` (`+ownerCol+`, label_id) VALUES (?, ?)`), ownerID, id); err != nil {
			return fmt.Errorf("link %s: %w", table, err)
		}
	}
	return nil
}

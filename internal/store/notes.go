package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Note is a creator-owned note. Timestamps are unix millis; nil means unset.
type Note struct {
	ID         string
	CreatorID  string
	Title      string
	Content    string
	StartAt    *int64
	DeadlineAt *int64
	ResolvedAt *int64
	CreatedAt  int64
	UpdatedAt  int64
}

// NoteDraft carries the writable fields of a note.
type NoteDraft struct {
	Title      string
	Content    string
	LabelIDs   []string
	StartAt    *int64
	DeadlineAt *int64
}

// NoteFilter narrows ListNotes. Zero values mean "any".
type NoteFilter struct {
	LabelIDs []string // note has at least one of these labels
	GroupID  string   // note is shared with this group
	Resolved *bool
	Search   string // case-insensitive substring of title or content
}

const noteColumns = `n.id, n.creator_id, n.title, n.content, n.start_at, n.deadline_at, n.resolved_at, n.created_at, n.updated_at`

func scanNote(row interface{ Scan(...any) error }) (*Note, error) {
	var n Note
	if err := row.Scan(&n.ID, &n.CreatorID, &n.Title, &n.Content, &n.StartAt, &n.DeadlineAt, &n.ResolvedAt, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	return &n, nil
}

// CreateNote inserts a note and its label links.
func (db *DB) CreateNote(ctx context.Context, creatorID string, d NoteDraft) (*Note, error) {
	now := nowMillis()
	n := &Note{
		ID:         newID(),
		CreatorID:  creatorID,
		Title:      d.Title,
		Content:    d.Content,
		StartAt:    d.StartAt,
		DeadlineAt: d.DeadlineAt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create note: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, db.rebind(`
		INSERT INTO notes (id, creator_id, title, content, start_at, deadline_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), n.ID, n.CreatorID, n.Title, n.Content, n.StartAt, n.DeadlineAt, n.CreatedAt, n.UpdatedAt); err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	if err := db.replaceLinks(ctx, tx, "note_labels", "note_id", n.ID, d.LabelIDs); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create note: %w", err)
	}
	return n, nil
}

// GetNote returns a note by id, or nil if not found.
func (db *DB) GetNote(ctx context.Context, id string) (*Note, error) {
	n, err := scanNote(db.QueryRowContext(ctx, db.rebind(`SELECT `+noteColumns+` FROM notes n WHERE n.id = ?`), id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	return n, nil
}

// UpdateNote replaces a note's writable fields and labels. The resolved
// timestamp is left alone; see SetNoteResolved.
func (db *DB) UpdateNote(ctx context.Context, id string, d NoteDraft) (*Note, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update note: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, db.rebind(`
		UPDATE notes SET title = ?, content = ?, start_at = ?, deadline_at = ?, updated_at = ?
		WHERE id = ?
	`), d.Title, d.Content, d.StartAt, d.DeadlineAt, nowMillis(), id)
	if err != nil {
		return nil, fmt.Errorf("update note: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("update note %s: %w", id, ErrNotFound)
	}
	if err := db.replaceLinks(ctx, tx, "note_labels", "note_id", id, d.LabelIDs); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update note: %w", err)
	}
	return db.GetNote(ctx, id)
}

// SetNoteResolved sets or clears the resolved timestamp.
func (db *DB) SetNoteResolved(ctx context.Context, id string, resolvedAt *int64) (*Note, error) {
	result, err := db.ExecContext(ctx, db.rebind(`
		UPDATE notes SET resolved_at = ?, updated_at = ? WHERE id = ?
	`), resolvedAt, nowMillis(), id)
	if err != nil {
		return nil, fmt.Errorf("resolve note: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("resolve note %s: %w", id, ErrNotFound)
	}
	return db.GetNote(ctx, id)
}

// DeleteNote removes a note; label and group links cascade.
func (db *DB) DeleteNote(ctx context.Context, id string) error {
	result, err := db.ExecContext(ctx, db.rebind(`DELETE FROM notes WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("delete note %s: %w", id, ErrNotFound)
	}
	return nil
}

// visibleNoteClause matches notes the viewer created or that are shared with
// one of the viewer's groups. It takes the viewer id twice.
const visibleNoteClause = `(n.creator_id = ? OR EXISTS (
	SELECT 1 FROM note_groups ng
	JOIN group_memberships m ON m.group_id = ng.group_id
	WHERE ng.note_id = n.id AND m.user_id = ?))`

// ListNotes returns the notes visible to viewerID, most recently updated first.
func (db *DB) ListNotes(ctx context.Context, viewerID string, f NoteFilter) ([]Note, error) {
	where := []string{visibleNoteClause}
	args := []any{viewerID, viewerID}

	if len(f.LabelIDs) > 0 {
		where = append(where, `EXISTS (SELECT 1 FROM note_labels nl WHERE nl.note_id = n.id AND nl.label_id IN (`+placeholders(len(f.LabelIDs))+`))`)
		args = append(args, stringArgs(f.LabelIDs)...)
	}
	if f.GroupID != "" {
		where = append(where, `EXISTS (SELECT 1 FROM note_groups g2 WHERE g2.note_id = n.id AND g2.group_id = ?)`)
		args = append(args, f.GroupID)
	}
	if f.Resolved != nil {
		if *f.Resolved {
			where = append(where, `n.resolved_at IS NOT NULL`)
		} else {
			where = append(where, `n.resolved_at IS NULL`)
		}
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + escapeLike(s) + "%"
		where = append(where, `(LOWER(n.title) LIKE LOWER(?) ESCAPE '\' OR LOWER(n.content) LIKE LOWER(?) ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	rows, err := db.QueryContext(ctx, db.rebind(`
		SELECT `+noteColumns+` FROM notes n
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY n.updated_at DESC
	`), args...)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, *n)
	}
	return notes, rows.Err()
}

// CanReadNote reports whether userID created the note or shares a group with it.
func (db *DB) CanReadNote(ctx context.Context, noteID, userID string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx, db.rebind(`
		SELECT COUNT(*) FROM notes n WHERE n.id = ? AND `+visibleNoteClause+`
	`), noteID, userID, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("can read note: %w", err)
	}
	return n > 0, nil
}

// ShareNote shares a note with a group. Sharing twice is a conflict.
func (db *DB) ShareNote(ctx context.Context, noteID, groupID string) error {
	_, err := db.ExecContext(ctx, db.rebind(`INSERT INTO note_groups (note_id, group_id) VALUES (?, ?)`), noteID, groupID)
	if err != nil {
		return conflictOr(err, "share note")
	}
	return nil
}

// UnshareNote removes a note's share with a group.
func (db *DB) UnshareNote(ctx context.Context, noteID, groupID string) error {
	result, err := db.ExecContext(ctx, db.rebind(`DELETE FROM note_groups WHERE note_id = ? AND group_id = ?`), noteID, groupID)
	if err != nil {
		return fmt.Errorf("unshare note: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("unshare note %s from %s: %w", noteID, groupID, ErrNotFound)
	}
	return nil
}

// GroupsForNote returns the groups a note is shared with.
func (db *DB) GroupsForNote(ctx context.Context, noteID string) ([]Group, error) {
	rows, err := db.QueryContext(ctx, db.rebind(`
		SELECT `+groupColumns+` FROM user_groups g
		JOIN note_groups ng ON ng.group_id = g.id
		WHERE ng.note_id = ? ORDER BY g.name
	`), noteID)
	if err != nil {
		return nil, fmt.Errorf("groups for note: %w", err)
	}
	defer rows.Close()
	return scanGroups(rows)
}

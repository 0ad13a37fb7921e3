package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// NextExercise picks the exercise a learner should study next among those
// matching c. Exercises the learner has never answered come first. After
// that, the lowest correct streak wins among exercises not studied since
// studiedBefore (unix millis). Ties fall to the database's row order.
// Returns nil when nothing is eligible.
func (db *DB) NextExercise(ctx context.Context, learnerID string, c FilterCriteria, studiedBefore int64) (*Exercise, error) {
	if c.MaxCorrectStreak == nil || *c.MaxCorrectStreak >= 0 {
		e, err := db.nextUnseen(ctx, learnerID, c)
		if err != nil || e != nil {
			return e, err
		}
	}
	return db.nextDue(ctx, learnerID, c, studiedBefore)
}

func (db *DB) nextUnseen(ctx context.Context, learnerID string, c FilterCriteria) (*Exercise, error) {
	where, args := c.where()
	where = append(where,
		`e.marked_for_deletion_at IS NULL`,
		`NOT EXISTS (SELECT 1 FROM experiences x WHERE x.exercise_id = e.id AND x.learner_id = ?)`,
	)
	args = append(args, learnerID)

	e, err := scanExercise(db.QueryRowContext(ctx, db.rebind(`
		SELECT `+exerciseColumns+` FROM exercises e
		WHERE `+strings.Join(where, " AND ")+`
		LIMIT 1
	`), args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next unseen exercise: %w", err)
	}
	return e, nil
}

func (db *DB) nextDue(ctx context.Context, learnerID string, c FilterCriteria, studiedBefore int64) (*Exercise, error) {
	where, args := c.where()
	where = append(where,
		`e.marked_for_deletion_at IS NULL`,
		`(x.last_studied_at IS NULL OR x.last_studied_at < ?)`,
	)
	args = append(args, studiedBefore)
	if c.MaxCorrectStreak != nil {
		where = append(where, `x.correct_streak <= ?`)
		args = append(args, *c.MaxCorrectStreak)
	}

	e, err := scanExercise(db.QueryRowContext(ctx, db.rebind(`
		SELECT `+exerciseColumns+` FROM exercises e
		JOIN experiences x ON x.exercise_id = e.id AND x.learner_id = ?
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY x.correct_streak ASC
		LIMIT 1
	`), append([]any{learnerID}, args...)...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next due exercise: %w", err)
	}
	return e, nil
}

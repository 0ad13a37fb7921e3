package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Experience is a learner's progress on one exercise.
type Experience struct {
	ExerciseID    string
	LearnerID     string
	CorrectStreak int
	LastStudiedAt *int64
}

// GetExperience returns the learner's experience with an exercise, or nil if
// the learner has never answered it.
func (db *DB) GetExperience(ctx context.Context, exerciseID, learnerID string) (*Experience, error) {
	var x Experience
	err := db.QueryRowContext(ctx, db.rebind(`
		SELECT exercise_id, learner_id, correct_streak, last_studied_at FROM experiences
		WHERE exercise_id = ? AND learner_id = ?
	`), exerciseID, learnerID).Scan(&x.ExerciseID, &x.LearnerID, &x.CorrectStreak, &x.LastStudiedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get experience: %w", err)
	}
	return &x, nil
}

// RecordAnswer updates the learner's streak: a correct answer extends it, a
// wrong one resets it to zero. The experience is created on first answer.
func (db *DB) RecordAnswer(ctx context.Context, exerciseID, learnerID string, correct bool, at int64) (*Experience, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin record answer: %w", err)
	}
	defer tx.Rollback()

	x := Experience{ExerciseID: exerciseID, LearnerID: learnerID}
	var lastStudied *int64
	err = tx.QueryRowContext(ctx, db.rebind(`
		SELECT correct_streak, last_studied_at FROM experiences
		WHERE exercise_id = ? AND learner_id = ?
	`), exerciseID, learnerID).Scan(&x.CorrectStreak, &lastStudied)
	exists := err == nil
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("read experience: %w", err)
	}

	if correct {
		x.CorrectStreak++
	} else {
		x.CorrectStreak = 0
	}
	x.LastStudiedAt = &at

	if exists {
		_, err = tx.ExecContext(ctx, db.rebind(`
			UPDATE experiences SET correct_streak = ?, last_studied_at = ?
			WHERE exercise_id = ? AND learner_id = ?
		`), x.CorrectStreak, at, exerciseID, learnerID)
	} else {
		_, err = tx.ExecContext(ctx, db.rebind(`
			INSERT INTO experiences (exercise_id, learner_id, correct_streak, last_studied_at)
			VALUES (?, ?, ?, ?)
		`), exerciseID, learnerID, x.CorrectStreak, at)
	}
	if err != nil {
		return nil, fmt.Errorf("write experience: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit record answer: %w", err)
	}
	return &x, nil
}

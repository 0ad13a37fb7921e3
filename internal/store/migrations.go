package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

// Statements are kept to the subset of SQL that both SQLite and Postgres
// accept. Timestamps are unix milliseconds.
var migrations = []migration{
	{
		Version:     1,
		Description: "users",
		SQL: `
CREATE TABLE users (
    id            TEXT PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    name          TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at    BIGINT NOT NULL,
    updated_at    BIGINT NOT NULL
);
`,
	},
	{
		Version:     2,
		Description: "labels: per-user tags for notes and exercises",
		SQL: `
CREATE TABLE labels (
    id         TEXT PRIMARY KEY,
    creator_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name       TEXT NOT NULL,
    color      TEXT,
    created_at BIGINT NOT NULL,
    UNIQUE (creator_id, name)
);

CREATE INDEX idx_labels_creator ON labels(creator_id);
`,
	},
	{
		Version:     3,
		Description: "groups and memberships",
		SQL: `
CREATE TABLE user_groups (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    description TEXT,
    created_at  BIGINT NOT NULL,
    updated_at  BIGINT NOT NULL
);

CREATE TABLE group_memberships (
    group_id   TEXT NOT NULL REFERENCES user_groups(id) ON DELETE CASCADE,
    user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    role       TEXT NOT NULL CHECK (role IN ('owner', 'admin', 'member')),
    created_at BIGINT NOT NULL,
    PRIMARY KEY (group_id, user_id)
);

CREATE INDEX idx_memberships_user ON group_memberships(user_id);
`,
	},
	{
		Version:     4,
		Description: "notes with labels and group sharing",
		SQL: `
CREATE TABLE notes (
    id          TEXT PRIMARY KEY,
    creator_id  TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    title       TEXT NOT NULL,
    content     TEXT NOT NULL,
    start_at    BIGINT,
    deadline_at BIGINT,
    resolved_at BIGINT,
    created_at  BIGINT NOT NULL,
    updated_at  BIGINT NOT NULL
);

CREATE INDEX idx_notes_creator  ON notes(creator_id);
CREATE INDEX idx_notes_updated  ON notes(updated_at DESC);

CREATE TABLE note_labels (
    note_id  TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
    label_id TEXT NOT NULL REFERENCES labels(id) ON DELETE CASCADE,
    PRIMARY KEY (note_id, label_id)
);

CREATE TABLE note_groups (
    note_id  TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
    group_id TEXT NOT NULL REFERENCES user_groups(id) ON DELETE CASCADE,
    PRIMARY KEY (note_id, group_id)
);

CREATE INDEX idx_note_groups_group ON note_groups(group_id);
`,
	},
	{
		Version:     5,
		Description: "exercises: metadata rows, hydrated bodies live in object storage",
		SQL: `
CREATE TABLE exercises (
    id                     TEXT PRIMARY KEY,
    creator_id             TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    type                   TEXT NOT NULL,
    language_code          TEXT NOT NULL,
    created_at             BIGINT NOT NULL,
    updated_at             BIGINT NOT NULL,
    marked_for_deletion_at BIGINT
);

CREATE INDEX idx_exercises_creator  ON exercises(creator_id);
CREATE INDEX idx_exercises_language ON exercises(language_code);
CREATE INDEX idx_exercises_marked   ON exercises(marked_for_deletion_at);

CREATE TABLE exercise_labels (
    exercise_id TEXT NOT NULL REFERENCES exercises(id) ON DELETE CASCADE,
    label_id    TEXT NOT NULL REFERENCES labels(id) ON DELETE CASCADE,
    PRIMARY KEY (exercise_id, label_id)
);
`,
	},
	{
		Version:     6,
		Description: "experiences: per learner study progress",
		SQL: `
CREATE TABLE experiences (
    exercise_id     TEXT NOT NULL REFERENCES exercises(id) ON DELETE CASCADE,
    learner_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    correct_streak  INTEGER NOT NULL DEFAULT 0,
    last_studied_at BIGINT,
    PRIMARY KEY (exercise_id, learner_id)
);

CREATE INDEX idx_experiences_learner ON experiences(learner_id, correct_streak);
`,
	},
	{
		Version:     7,
		Description: "exercise_filters: saved study filters",
		SQL: `
CREATE TABLE exercise_filters (
    id         TEXT PRIMARY KEY,
    creator_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name       TEXT NOT NULL,
    definition TEXT NOT NULL,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL,
    UNIQUE (creator_id, name)
);
`,
	},
}

func (db *DB) migrate() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  BIGINT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow(db.rebind("SELECT COUNT(*) FROM schema_versions WHERE version = ?"), m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			db.rebind("INSERT INTO schema_versions (version, description, applied_at) VALUES (?, ?, ?)"),
			m.Version, m.Description, nowMillis(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}

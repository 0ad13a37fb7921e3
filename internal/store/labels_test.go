package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelCRUD(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := mustUser(t, db, "ada@example.com", "Ada")

	l, err := db.CreateLabel(ctx, u.ID, "korean", "#ff0000")
	require.NoError(t, err)

	_, err = db.CreateLabel(ctx, u.ID, "korean", "")
	assert.ErrorIs(t, err, ErrConflict)

	other := mustUser(t, db, "alan@example.com", "Alan")
	_, err = db.CreateLabel(ctx, other.ID, "korean", "")
	require.NoError(t, err, "label names are unique per creator only")

	updated, err := db.UpdateLabel(ctx, l.ID, "hangul", "")
	require.NoError(t, err)
	assert.Equal(t, "hangul", updated.Name)
	assert.Empty(t, updated.Color)

	labels, err := db.ListLabels(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, labels, 1)

	require.NoError(t, db.DeleteLabel(ctx, l.ID))
	assert.ErrorIs(t, db.DeleteLabel(ctx, l.ID), ErrNotFound)

	got, err := db.GetLabel(ctx, l.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetLabels(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := mustUser(t, db, "ada@example.com", "Ada")
	a, _ := db.CreateLabel(ctx, u.ID, "a", "")
	b, _ := db.CreateLabel(ctx, u.ID, "b", "")

	labels, err := db.GetLabels(ctx, []string{a.ID, b.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, labels, 2)

	labels, err = db.GetLabels(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, labels)
}

func TestDeleteLabelUnlinksNotes(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := mustUser(t, db, "ada@example.com", "Ada")
	l, _ := db.CreateLabel(ctx, u.ID, "todo", "")

	n, err := db.CreateNote(ctx, u.ID, NoteDraft{Title: "T", Content: "C", LabelIDs: []string{l.ID, l.ID}})
	require.NoError(t, err)

	labels, err := db.LabelsForNote(ctx, n.ID)
	require.NoError(t, err)
	require.Len(t, labels, 1, "duplicate label ids collapse")

	require.NoError(t, db.DeleteLabel(ctx, l.ID))
	labels, err = db.LabelsForNote(ctx, n.ID)
	require.NoError(t, err)
	assert.Empty(t, labels)
}

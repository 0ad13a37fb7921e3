package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func note(id, title string, resolved bool) Entity {
	return Entity{Typename: "Note", ID: id, Fields: map[string]any{"title": title, "resolved": resolved}}
}

func ids(entities []Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.ID
	}
	return out
}

func unresolved(e Entity) bool { return e.Fields["resolved"] == false }

func listIDs(t *testing.T, c *Cache, name string) []string {
	t.Helper()
	entities, ok := c.List(name)
	require.True(t, ok, "list %s", name)
	return ids(entities)
}

func TestCacheWriteUpdatesEveryList(t *testing.T) {
	c := NewCache()
	c.SetList("all", "Note", []Entity{note("a", "A", false), note("b", "B", false)}, nil)
	c.SetList("open", "Note", []Entity{note("a", "A", false)}, unresolved)

	c.Write(Entity{Typename: "Note", ID: "a", Fields: map[string]any{"title": "A2"}})

	all, _ := c.List("all")
	open, _ := c.List("open")
	assert.Equal(t, "A2", all[0].Fields["title"])
	assert.Equal(t, "A2", open[0].Fields["title"])
	assert.Equal(t, false, open[0].Fields["resolved"], "fields not in the write are kept")
}

func TestCacheWriteDropsFromNonMatchingLists(t *testing.T) {
	c := NewCache()
	c.SetList("all", "Note", []Entity{note("a", "A", false)}, nil)
	c.SetList("open", "Note", []Entity{note("a", "A", false)}, unresolved)

	c.Write(Entity{Typename: "Note", ID: "a", Fields: map[string]any{"resolved": true}})

	assert.Equal(t, []string{"a"}, listIDs(t, c, "all"))
	assert.Empty(t, listIDs(t, c, "open"))
}

func TestCacheInsert(t *testing.T) {
	c := NewCache()
	c.SetList("open", "Note", []Entity{note("a", "A", false)}, unresolved)
	c.SetList("labels", "Label", nil, nil)

	c.Insert(note("b", "B", false))
	c.Insert(note("c", "C", true))
	c.Insert(note("b", "B again", false))

	assert.Equal(t, []string{"a", "b"}, listIDs(t, c, "open"))
	assert.Empty(t, listIDs(t, c, "labels"))

	got, ok := c.Get("Note", "c")
	require.True(t, ok)
	assert.Equal(t, "C", got.Fields["title"])
}

func TestCacheEvict(t *testing.T) {
	c := NewCache()
	c.SetList("all", "Note", []Entity{note("a", "A", false), note("b", "B", false)}, nil)
	c.SetList("open", "Note", []Entity{note("a", "A", false)}, unresolved)

	c.Evict("Note", "a")

	assert.Equal(t, []string{"b"}, listIDs(t, c, "all"))
	assert.Empty(t, listIDs(t, c, "open"))
	_, ok := c.Get("Note", "a")
	assert.False(t, ok)
}

func TestCacheSnapshotsAreCopies(t *testing.T) {
	c := NewCache()
	c.Write(note("a", "A", false))

	got, _ := c.Get("Note", "a")
	got.Fields["title"] = "mutated"

	again, _ := c.Get("Note", "a")
	assert.Equal(t, "A", again.Fields["title"])

	_, ok := c.List("missing")
	assert.False(t, ok)
}

package client

import (
	"maps"
	"slices"
	"sync"
)

// Entity is a cached object. Typename and ID together identify it.
type Entity struct {
	Typename string
	ID       string
	Fields   map[string]any
}

// Key is the normalized cache key of an entity.
func Key(typename, id string) string {
	return typename + ":" + id
}

func (e Entity) key() string { return Key(e.Typename, e.ID) }

func (e Entity) clone() Entity {
	e.Fields = maps.Clone(e.Fields)
	return e
}

// Predicate decides whether an entity belongs in a list.
type Predicate func(Entity) bool

type list struct {
	typename string
	keys     []string
	match    Predicate
}

// Cache is a normalized store of entities plus named lists that reference
// them by key. An entity is stored once, so writing it updates every list
// that holds it. Safe for concurrent use.
type Cache struct {
	mu       sync.RWMutex
	entities map[string]Entity
	lists    map[string]*list
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		entities: make(map[string]Entity),
		lists:    make(map[string]*list),
	}
}

// SetList stores the result of a list query under name. match tells later
// Write and Insert calls which entities of the same type belong in it; a
// nil match accepts everything.
func (c *Cache) SetList(name, typename string, entities []Entity, match Predicate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	l := &list{typename: typename, match: match}
	for _, e := range entities {
		c.mergeLocked(e)
		l.keys = append(l.keys, e.key())
	}
	c.lists[name] = l
}

// Write merges e's fields into the cached entity. Lists whose predicate no
// longer accepts the result drop it.
func (c *Cache) Write(e Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	merged := c.mergeLocked(e)
	for _, l := range c.lists {
		if l.typename == e.Typename && l.match != nil && !l.match(merged) {
			l.keys = slices.DeleteFunc(l.keys, func(k string) bool { return k == merged.key() })
		}
	}
}

// Insert writes e and appends it to every list of its type whose predicate
// accepts it.
func (c *Cache) Insert(e Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	merged := c.mergeLocked(e)
	key := merged.key()
	for _, l := range c.lists {
		if l.typename != e.Typename {
			continue
		}
		accepted := l.match == nil || l.match(merged)
		present := slices.Contains(l.keys, key)
		switch {
		case accepted && !present:
			l.keys = append(l.keys, key)
		case !accepted && present:
			l.keys = slices.DeleteFunc(l.keys, func(k string) bool { return k == key })
		}
	}
}

// Evict removes an entity and every list reference to it.
func (c *Cache) Evict(typename, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := Key(typename, id)
	delete(c.entities, key)
	for _, l := range c.lists {
		l.keys = slices.DeleteFunc(l.keys, func(k string) bool { return k == key })
	}
}

// Get returns a snapshot of one entity.
func (c *Cache) Get(typename, id string) (Entity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entities[Key(typename, id)]
	if !ok {
		return Entity{}, false
	}
	return e.clone(), true
}

// List returns snapshots of the entities in a named list, in list order.
func (c *Cache) List(name string) ([]Entity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.lists[name]
	if !ok {
		return nil, false
	}
	out := make([]Entity, 0, len(l.keys))
	for _, k := range l.keys {
		if e, ok := c.entities[k]; ok {
			out = append(out, e.clone())
		}
	}
	return out, true
}

func (c *Cache) mergeLocked(e Entity) Entity {
	key := e.key()
	current, ok := c.entities[key]
	if !ok {
		current = Entity{Typename: e.Typename, ID: e.ID, Fields: make(map[string]any, len(e.Fields))}
	} else {
		current = current.clone()
	}
	maps.Copy(current.Fields, e.Fields)
	c.entities[key] = current
	return current
}

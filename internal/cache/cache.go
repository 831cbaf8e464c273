// Package cache holds the client-side todo list cache and the pure
// reconciliation rules that keep optimistic local state consistent with
// eventual server responses.
package cache

import (
	"sync"

	"github.com/nhle/nimbly/internal/model"
)

// Key identifies one cached todo page. Pages are cached per owning user.
type Key struct {
	Entity  string
	OwnerID int
}

// TodosKey returns the cache key for a user's todo page.
func TodosKey(ownerID int) Key {
	return Key{Entity: "todos", OwnerID: ownerID}
}

// MutationContext captures the state needed to undo one optimistic mutation.
// It is taken synchronously before the server call is issued, so interleaved
// mutations on other ids cannot corrupt this one's rollback data.
type MutationContext struct {
	Previous *model.TodoPage
}

// Cache is a process-wide map of todo pages. All methods are safe for
// concurrent use; reads hand out deep copies so callers never alias the
// live page.
type Cache struct {
	mu    sync.RWMutex
	pages map[Key]*model.TodoPage
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{pages: make(map[Key]*model.TodoPage)}
}

// Get returns a copy of the cached page for key, or nil when nothing has
// been cached yet.
func (c *Cache) Get(key Key) *model.TodoPage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pages[key].Clone()
}

// Set replaces the cached page for key.
func (c *Cache) Set(key Key, page *model.TodoPage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[key] = page.Clone()
}

// Snapshot returns a rollback context holding a copy of the current page.
// Previous stays nil when the key has never been populated, which makes a
// later Rollback restore the "nothing cached" state.
func (c *Cache) Snapshot(key Key) *MutationContext {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return &MutationContext{Previous: c.pages[key].Clone()}
}

// Rollback restores the page captured in mctx. A nil context is a no-op, so
// callers can pass through whatever they captured without a guard.
func (c *Cache) Rollback(key Key, mctx *MutationContext) {
	if mctx == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if mctx.Previous == nil {
		delete(c.pages, key)
		return
	}
	c.pages[key] = mctx.Previous.Clone()
}

// InsertOptimistic prepends the todo to the page at key and bumps the total.
// A missing page falls back to an empty one, so a create issued before the
// first list fetch still lands.
func (c *Cache) InsertOptimistic(key Key, todo model.Todo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	page := WithFallback(c.pages[key])
	page.Todos = append([]model.Todo{todo}, page.Todos...)
	page.Total++
	c.pages[key] = &page
}

// ApplyLocalUpdate merges patch over the todo with the given id, leaving
// every other todo and the total untouched. No-op when the key has no cached
// page or the id is absent.
func (c *Cache) ApplyLocalUpdate(key Key, id int, patch model.TodoPatch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	page := c.pages[key]
	if page == nil {
		return
	}
	for i, todo := range page.Todos {
		if todo.ID == id {
			page.Todos[i] = patch.Apply(todo)
		}
	}
}

// ApplyLocalDelete removes the todo with the given id and decrements the
// total, floored at zero. Deleting an absent id leaves the total unchanged.
func (c *Cache) ApplyLocalDelete(key Key, id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	page := c.pages[key]
	if page == nil {
		return
	}
	kept := page.Todos[:0]
	removed := false
	for _, todo := range page.Todos {
		if todo.ID == id {
			removed = true
			continue
		}
		kept = append(kept, todo)
	}
	if !removed {
		return
	}
	page.Todos = kept
	if page.Total > 0 {
		page.Total--
	}
}

// MergeCreated replaces the optimistic placeholder with the server-confirmed
// todo, keeping whichever id ResolveCreatedTodoID decides is stable. No-op
// when the page or the placeholder is gone (e.g. deleted locally while the
// create was in flight).
func (c *Cache) MergeCreated(key Key, optimisticID int, created model.Todo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	page := c.pages[key]
	if page == nil {
		return
	}
	mergedID := ResolveCreatedTodoID(page.Todos, optimisticID, created.ID)
	for i, todo := range page.Todos {
		if todo.ID == optimisticID {
			created.ID = mergedID
			page.Todos[i] = created
		}
	}
}

package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/nimbly/internal/model"
)

func strptr(s string) *string { return &s }
func boolptr(b bool) *bool    { return &b }

func seedPage(c *Cache, key Key, todos ...model.Todo) {
	c.Set(key, &model.TodoPage{Todos: todos, Total: len(todos)})
}

func TestApplyLocalUpdate(t *testing.T) {
	c := New()
	key := TodosKey(1)
	seedPage(c, key,
		model.Todo{ID: 1, Title: "first", OwnerID: 1},
		model.Todo{ID: 2, Title: "second", OwnerID: 1},
	)

	c.ApplyLocalUpdate(key, 2, model.TodoPatch{Title: strptr("renamed"), Completed: boolptr(true)})

	page := c.Get(key)
	require.NotNil(t, page)
	assert.Equal(t, "first", page.Todos[0].Title)
	assert.Equal(t, "renamed", page.Todos[1].Title)
	assert.True(t, page.Todos[1].Completed)
	assert.Equal(t, 2, page.Total, "update must not touch total")
}

func TestApplyLocalUpdateMissingPageIsNoop(t *testing.T) {
	c := New()
	c.ApplyLocalUpdate(TodosKey(1), 1, model.TodoPatch{Title: strptr("x")})
	assert.Nil(t, c.Get(TodosKey(1)))
}

func TestApplyLocalDelete(t *testing.T) {
	c := New()
	key := TodosKey(1)
	seedPage(c, key,
		model.Todo{ID: 1, OwnerID: 1},
		model.Todo{ID: 2, OwnerID: 1},
	)

	c.ApplyLocalDelete(key, 1)

	page := c.Get(key)
	require.Len(t, page.Todos, 1)
	assert.Equal(t, 2, page.Todos[0].ID)
	assert.Equal(t, 1, page.Total)
}

func TestApplyLocalDeleteAbsentIDKeepsTotal(t *testing.T) {
	c := New()
	key := TodosKey(1)
	seedPage(c, key, model.Todo{ID: 1, OwnerID: 1})

	c.ApplyLocalDelete(key, 99)

	page := c.Get(key)
	assert.Len(t, page.Todos, 1)
	assert.Equal(t, 1, page.Total)
}

func TestTotalNeverGoesNegative(t *testing.T) {
	c := New()
	key := TodosKey(1)
	c.Set(key, &model.TodoPage{Todos: []model.Todo{{ID: 1}}, Total: 0})

	c.ApplyLocalDelete(key, 1)
	c.ApplyLocalDelete(key, 1)

	page := c.Get(key)
	assert.Empty(t, page.Todos)
	assert.Equal(t, 0, page.Total)
}

func TestInsertOptimisticWithoutPriorFetch(t *testing.T) {
	c := New()
	key := TodosKey(1)

	c.InsertOptimistic(key, model.Todo{ID: -1, Title: "Buy milk", OwnerID: 1})

	page := c.Get(key)
	require.NotNil(t, page)
	require.Len(t, page.Todos, 1)
	assert.Equal(t, -1, page.Todos[0].ID)
	assert.Equal(t, 1, page.Total)
}

func TestInsertOptimisticPrepends(t *testing.T) {
	c := New()
	key := TodosKey(1)
	seedPage(c, key, model.Todo{ID: 5, Title: "old"})

	c.InsertOptimistic(key, model.Todo{ID: -1, Title: "new"})

	page := c.Get(key)
	require.Len(t, page.Todos, 2)
	assert.Equal(t, -1, page.Todos[0].ID)
	assert.Equal(t, 5, page.Todos[1].ID)
	assert.Equal(t, 2, page.Total)
}

func TestSnapshotRollback(t *testing.T) {
	c := New()
	key := TodosKey(1)
	seedPage(c, key, model.Todo{ID: 1, Title: "keep me"})

	mctx := c.Snapshot(key)
	c.ApplyLocalDelete(key, 1)
	require.Empty(t, c.Get(key).Todos)

	c.Rollback(key, mctx)

	page := c.Get(key)
	require.Len(t, page.Todos, 1)
	assert.Equal(t, "keep me", page.Todos[0].Title)
	assert.Equal(t, 1, page.Total)
}

func TestRollbackToUnpopulatedState(t *testing.T) {
	c := New()
	key := TodosKey(1)

	mctx := c.Snapshot(key)
	c.InsertOptimistic(key, model.Todo{ID: -1})
	c.Rollback(key, mctx)

	assert.Nil(t, c.Get(key))
}

func TestRollbackNilContextIsNoop(t *testing.T) {
	c := New()
	key := TodosKey(1)
	seedPage(c, key, model.Todo{ID: 1})

	c.Rollback(key, nil)

	assert.Len(t, c.Get(key).Todos, 1)
}

func TestSnapshotIsIsolatedFromLaterMutations(t *testing.T) {
	c := New()
	key := TodosKey(1)
	seedPage(c, key, model.Todo{ID: 1, Title: "original"})

	mctx := c.Snapshot(key)
	c.ApplyLocalUpdate(key, 1, model.TodoPatch{Title: strptr("mutated")})

	require.NotNil(t, mctx.Previous)
	assert.Equal(t, "original", mctx.Previous.Todos[0].Title)
}

func TestMergeCreatedAdoptsServerID(t *testing.T) {
	c := New()
	key := TodosKey(1)
	seedPage(c, key, model.Todo{ID: -1, Title: "draft", OwnerID: 1})

	c.MergeCreated(key, -1, model.Todo{ID: 42, Title: "draft", OwnerID: 1})

	page := c.Get(key)
	require.Len(t, page.Todos, 1)
	assert.Equal(t, 42, page.Todos[0].ID)
}

func TestMergeCreatedKeepsOptimisticIDOnSentinel(t *testing.T) {
	c := New()
	key := TodosKey(1)
	seedPage(c, key, model.Todo{ID: -1, Title: "draft"})

	c.MergeCreated(key, -1, model.Todo{ID: EphemeralCreateID, Title: "draft"})

	page := c.Get(key)
	assert.Equal(t, -1, page.Todos[0].ID)
}

func TestMergeCreatedAfterLocalDeleteIsNoop(t *testing.T) {
	c := New()
	key := TodosKey(1)
	seedPage(c, key, model.Todo{ID: 7, Title: "other"})

	c.MergeCreated(key, -1, model.Todo{ID: 42})

	page := c.Get(key)
	require.Len(t, page.Todos, 1)
	assert.Equal(t, 7, page.Todos[0].ID)
}

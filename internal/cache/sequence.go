package cache

import (
	"sync/atomic"

	"github.com/nhle/nimbly/internal/model"
)

// IDSequence mints ids for optimistic todos: a monotonically decreasing
// counter starting at -1, so every optimistic id is unique and can never
// collide with a server-assigned (positive) id. The zero value is ready to
// use; each facade owns its own sequence rather than sharing a global.
type IDSequence struct {
	last atomic.Int64
}

// Next returns the next optimistic id.
func (s *IDSequence) Next() int {
	return int(s.last.Add(-1))
}

// NewOptimisticTodo builds the locally visible placeholder for a pending
// create.
func (s *IDSequence) NewOptimisticTodo(input model.CreateTodoRequest) model.Todo {
	return model.Todo{
		ID:        s.Next(),
		Title:     input.Title,
		Completed: input.Completed,
		OwnerID:   input.OwnerID,
	}
}

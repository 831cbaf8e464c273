package model

// Todo is a single task item as served by the remote todo service.
// Persisted todos carry a positive server-assigned ID. Negative IDs are
// reserved for optimistic local entries that the server has not confirmed
// yet; ID 0 never identifies a todo.
type Todo struct {
	ID        int    `json:"id"`
	Title     string `json:"todo"`
	Completed bool   `json:"completed"`
	OwnerID   int    `json:"userId"`
}

// Optimistic reports whether the todo exists only in the local cache.
func (t Todo) Optimistic() bool {
	return t.ID < 0
}

// TodoPage is one fetched page of todos for a user, in service wire shape.
type TodoPage struct {
	Todos []Todo `json:"todos"`
	Total int    `json:"total"`
	Skip  int    `json:"skip"`
	Limit int    `json:"limit"`
}

// Clone returns a deep copy of the page. Snapshots taken for rollback must
// not alias the live todo slice.
func (p *TodoPage) Clone() *TodoPage {
	if p == nil {
		return nil
	}
	dup := *p
	dup.Todos = make([]Todo, len(p.Todos))
	copy(dup.Todos, p.Todos)
	return &dup
}

// CreateTodoRequest is the body of POST /todos/add.
type CreateTodoRequest struct {
	Title     string `json:"todo"`
	Completed bool   `json:"completed"`
	OwnerID   int    `json:"userId"`
}

// TodoPatch is a partial update for PUT /todos/{id}. Nil fields are omitted
// from the request body.
type TodoPatch struct {
	Title     *string `json:"todo,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// IsEmpty reports whether the patch carries no fields at all.
func (p TodoPatch) IsEmpty() bool {
	return p.Title == nil && p.Completed == nil
}

// Apply merges the patch over the given todo and returns the result.
func (p TodoPatch) Apply(t Todo) Todo {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	return t
}

package api

import (
	"context"
	"fmt"

	"github.com/nhle/nimbly/internal/model"
)

// TodosByUser fetches the full todo list for a user. limit=0 asks the
// service for every record in one page.
func (c *Client) TodosByUser(ctx context.Context, ownerID int) (*model.TodoPage, error) {
	var page model.TodoPage
	path := fmt.Sprintf("/todos/user/%d?limit=0", ownerID)
	if err := c.Get(ctx, path, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CreateTodo creates a todo server-side and returns the created record.
// Note the service answers every create with the same ephemeral id; see
// cache.ResolveCreatedTodoID for how that is reconciled.
func (c *Client) CreateTodo(ctx context.Context, req model.CreateTodoRequest) (*model.Todo, error) {
	var todo model.Todo
	if err := c.Post(ctx, "/todos/add", req, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

// UpdateTodo applies a partial update to a persisted todo. 404s surface as
// a StatusError satisfying IsNotFound.
func (c *Client) UpdateTodo(ctx context.Context, id int, patch model.TodoPatch) (*model.Todo, error) {
	var todo model.Todo
	if err := c.Put(ctx, fmt.Sprintf("/todos/%d", id), patch, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

// DeleteTodo deletes a persisted todo and returns the deleted record.
func (c *Client) DeleteTodo(ctx context.Context, id int) (*model.Todo, error) {
	var todo model.Todo
	if err := c.Delete(ctx, fmt.Sprintf("/todos/%d", id), &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

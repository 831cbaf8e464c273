package cache

import (
	"strings"

	"github.com/nhle/nimbly/internal/model"
)

// EphemeralCreateID is the placeholder id the service assigns to every
// created todo. The record behind it is never persisted, so updating or
// deleting it later 404s.
const EphemeralCreateID = 255

// WithFallback returns the page unchanged when present, or an empty page
// otherwise.
func WithFallback(page *model.TodoPage) model.TodoPage {
	if page != nil {
		return *page
	}
	return model.TodoPage{Todos: []model.Todo{}}
}

// SanitizeUpdatePayload normalizes a patch before it is sent. The title is
// trimmed and dropped when blank; the completed flag passes through as-is.
// A nil result means nothing survived and there is nothing to send.
func SanitizeUpdatePayload(patch model.TodoPatch) *model.TodoPatch {
	sanitized := model.TodoPatch{Completed: patch.Completed}
	if patch.Title != nil {
		if title := strings.TrimSpace(*patch.Title); title != "" {
			sanitized.Title = &title
		}
	}
	if sanitized.IsEmpty() {
		return nil
	}
	return &sanitized
}

// ResolveCreatedTodoID decides which id the merged todo keeps after a create
// is confirmed. The service reuses a fixed ephemeral id across creates, so
// adopting it blindly would duplicate ids in the list. Keep the optimistic
// id when the server returned the known sentinel, or when its id collides
// with a different todo already in the cache; adopt the server id otherwise.
func ResolveCreatedTodoID(todos []model.Todo, optimisticID, createdID int) int {
	if createdID == EphemeralCreateID {
		return optimisticID
	}
	for _, todo := range todos {
		if todo.ID == createdID && todo.ID != optimisticID {
			return optimisticID
		}
	}
	return createdID
}

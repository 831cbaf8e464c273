package todos

import "github.com/nhle/nimbly/internal/model"

// View selects which bucket of the list is shown.
type View string

const (
	// ViewToday shows open todos.
	ViewToday View = "today"
	// ViewHistory shows completed todos.
	ViewHistory View = "history"
)

// DefaultPageSize is the number of todos per page.
const DefaultPageSize = 10

// Filter returns the todos belonging to the given view, preserving order.
func Filter(all []model.Todo, view View) []model.Todo {
	filtered := make([]model.Todo, 0, len(all))
	for _, todo := range all {
		if (view == ViewHistory) == todo.Completed {
			filtered = append(filtered, todo)
		}
	}
	return filtered
}

// Counts returns how many todos fall into each view.
func Counts(all []model.Todo) (today, history int) {
	for _, todo := range all {
		if todo.Completed {
			history++
		} else {
			today++
		}
	}
	return today, history
}

// TotalPages returns the number of pages for count items, never less than 1.
func TotalPages(count, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	pages := (count + pageSize - 1) / pageSize
	if pages < 1 {
		return 1
	}
	return pages
}

// ClampPage confines page to [1, totalPages].
func ClampPage(page, totalPages int) int {
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// Paginate returns the slice of todos visible on the given 1-based page.
func Paginate(todos []model.Todo, page, pageSize int) []model.Todo {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	page = ClampPage(page, TotalPages(len(todos), pageSize))
	start := (page - 1) * pageSize
	if start >= len(todos) {
		return nil
	}
	end := start + pageSize
	if end > len(todos) {
		end = len(todos)
	}
	return todos[start:end]
}

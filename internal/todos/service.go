// Package todos composes the API client and the cache reconciliation rules
// into optimistic create/update/remove operations with per-id pending
// tracking.
package todos

import (
	"context"
	"log/slog"
	"strings"

	"github.com/nhle/nimbly/internal/api"
	"github.com/nhle/nimbly/internal/cache"
	"github.com/nhle/nimbly/internal/model"
)

// Service exposes task operations for one owning user. Every mutation
// applies its local effect synchronously, captures a rollback snapshot
// first, and undoes itself before surfacing a server failure.
//
// Mutations on different ids may interleave freely; each one rolls back to
// its own snapshot. Mutations on the same id are not serialized; the cache
// is last-write-wins, matching the remote service's own semantics.
type Service struct {
	client  *api.Client
	cache   *cache.Cache
	logger  *slog.Logger
	ids     cache.IDSequence
	pending *pendingSet

	ownerID int
	key     cache.Key
}

// New creates a facade for the given owner. A nil logger falls back to
// slog.Default.
func New(client *api.Client, c *cache.Cache, ownerID int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client:  client,
		cache:   c,
		logger:  logger,
		pending: newPendingSet(),
		ownerID: ownerID,
		key:     cache.TodosKey(ownerID),
	}
}

// Page returns a copy of the cached todo page, or an empty fallback page
// when nothing has been fetched yet.
func (s *Service) Page() model.TodoPage {
	return cache.WithFallback(s.cache.Get(s.key))
}

// Refresh fetches the owner's todo list from the service into the cache.
func (s *Service) Refresh(ctx context.Context) error {
	if s.ownerID <= 0 {
		return nil
	}
	page, err := s.client.TodosByUser(ctx, s.ownerID)
	if err != nil {
		return err
	}
	s.cache.Set(s.key, page)
	return nil
}

// Create inserts an optimistic todo and issues the server create. Blank
// titles and an unestablished owner are silent no-ops. On failure the
// optimistic todo disappears and the error surfaces; on success the
// placeholder is merged with the server record under a stable id.
func (s *Service) Create(ctx context.Context, title string) error {
	title = strings.TrimSpace(title)
	if title == "" || s.ownerID <= 0 {
		return nil
	}

	s.pending.beginCreate()
	defer s.pending.endCreate()

	req := model.CreateTodoRequest{Title: title, Completed: false, OwnerID: s.ownerID}
	mctx := s.cache.Snapshot(s.key)
	optimistic := s.ids.NewOptimisticTodo(req)
	s.cache.InsertOptimistic(s.key, optimistic)

	created, err := s.client.CreateTodo(ctx, req)
	if err != nil {
		s.cache.Rollback(s.key, mctx)
		s.logger.Debug("create rolled back", slog.String("error", err.Error()))
		return err
	}

	s.cache.MergeCreated(s.key, optimistic.ID, *created)
	return nil
}

// Update applies a sanitized patch to the todo with the given id. An empty
// payload or id 0 is a silent no-op. Optimistic todos (negative id) are
// patched locally only, since the server has no record to update yet.
func (s *Service) Update(ctx context.Context, id int, patch model.TodoPatch) error {
	payload := cache.SanitizeUpdatePayload(patch)
	if payload == nil || id == 0 {
		return nil
	}

	if id < 0 {
		s.cache.ApplyLocalUpdate(s.key, id, *payload)
		return nil
	}

	s.pending.beginUpdate(id)
	defer s.pending.endUpdate(id)

	mctx := s.cache.Snapshot(s.key)
	s.cache.ApplyLocalUpdate(s.key, id, *payload)

	if _, err := s.client.UpdateTodo(ctx, id, *payload); err != nil {
		s.cache.Rollback(s.key, mctx)
		s.logger.Debug("update rolled back",
			slog.Int("id", id), slog.String("error", err.Error()))
		return err
	}
	return nil
}

// Remove deletes the todo with the given id. id 0 is a silent no-op.
// Optimistic todos are removed locally only, as there is nothing to delete
// server-side.
func (s *Service) Remove(ctx context.Context, id int) error {
	if id == 0 {
		return nil
	}

	if id < 0 {
		s.cache.ApplyLocalDelete(s.key, id)
		return nil
	}

	s.pending.beginDelete(id)
	defer s.pending.endDelete(id)

	mctx := s.cache.Snapshot(s.key)
	s.cache.ApplyLocalDelete(s.key, id)

	if _, err := s.client.DeleteTodo(ctx, id); err != nil {
		s.cache.Rollback(s.key, mctx)
		s.logger.Debug("delete rolled back",
			slog.Int("id", id), slog.String("error", err.Error()))
		return err
	}
	return nil
}

// IsCreating reports whether a server-bound create is outstanding.
func (s *Service) IsCreating() bool {
	return s.pending.creating()
}

// IsUpdating reports whether a server-bound update for id is outstanding.
func (s *Service) IsUpdating(id int) bool {
	return s.pending.updating(id)
}

// IsDeleting reports whether a server-bound delete for id is outstanding.
func (s *Service) IsDeleting(id int) bool {
	return s.pending.deleting(id)
}

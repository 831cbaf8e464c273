package notes

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultSaveDelay is how long the saver waits after the last edit before
// persisting.
const DefaultSaveDelay = 300 * time.Millisecond

// Saver coalesces rapid note edits into one write per todo. Queue resets a
// per-todo timer; when it fires, the draft is persisted unless it matches
// what was last written.
type Saver struct {
	store  *Store
	delay  time.Duration
	logger *slog.Logger

	mu        sync.Mutex
	timers    map[int]*time.Timer
	drafts    map[int]string
	persisted map[int]string
	closed    bool
}

// NewSaver creates a saver over the given store. delay <= 0 uses
// DefaultSaveDelay; a nil logger falls back to slog.Default.
func NewSaver(store *Store, delay time.Duration, logger *slog.Logger) *Saver {
	if delay <= 0 {
		delay = DefaultSaveDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Saver{
		store:     store,
		delay:     delay,
		logger:    logger,
		timers:    make(map[int]*time.Timer),
		drafts:    make(map[int]string),
		persisted: make(map[int]string),
	}
}

// Queue records a draft for the todo and (re)arms its save timer.
func (s *Saver) Queue(todoID int, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	// The first edit of an id seeds the persisted baseline from storage,
	// so clearing a note saved in an earlier session still writes.
	if _, seen := s.persisted[todoID]; !seen {
		stored, err := s.store.Note(context.Background(), todoID)
		if err == nil {
			s.persisted[todoID] = stored
		}
	}

	s.drafts[todoID] = content
	if timer, ok := s.timers[todoID]; ok {
		timer.Reset(s.delay)
		return
	}
	s.timers[todoID] = time.AfterFunc(s.delay, func() {
		s.saveOne(todoID)
	})
}

// Flush persists every outstanding draft immediately and stops all timers.
func (s *Saver) Flush(ctx context.Context) error {
	s.mu.Lock()
	pending := make(map[int]string)
	for id, draft := range s.drafts {
		if timer, ok := s.timers[id]; ok {
			timer.Stop()
			delete(s.timers, id)
		}
		if prev, seen := s.persisted[id]; !seen || prev != draft {
			pending[id] = draft
		}
		delete(s.drafts, id)
	}
	s.mu.Unlock()

	var firstErr error
	for id, draft := range pending {
		if err := s.store.SetNote(ctx, id, draft); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.mu.Lock()
		s.persisted[id] = draft
		s.mu.Unlock()
	}
	return firstErr
}

// Close flushes outstanding drafts and rejects further queueing.
func (s *Saver) Close() error {
	err := s.Flush(context.Background())
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return err
}

func (s *Saver) saveOne(todoID int) {
	s.mu.Lock()
	draft, ok := s.drafts[todoID]
	delete(s.drafts, todoID)
	delete(s.timers, todoID)
	prev, seen := s.persisted[todoID]
	unchanged := ok && seen && prev == draft
	s.mu.Unlock()

	if !ok || unchanged {
		return
	}

	if err := s.store.SetNote(context.Background(), todoID, draft); err != nil {
		s.logger.Warn("saving note failed",
			slog.Int("todo_id", todoID), slog.String("error", err.Error()))
		return
	}

	s.mu.Lock()
	s.persisted[todoID] = draft
	s.mu.Unlock()
}

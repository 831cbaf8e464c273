package notes

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaverCoalescesRapidEdits(t *testing.T) {
	s := newTestStore(t)
	saver := NewSaver(s, 50*time.Millisecond, nil)
	defer saver.Close()

	saver.Queue(1, "r")
	saver.Queue(1, "re")
	saver.Queue(1, "remember")

	require.Eventually(t, func() bool {
		note, err := s.Note(context.Background(), 1)
		return err == nil && note == "remember"
	}, time.Second, 10*time.Millisecond)
}

func TestSaverFlushPersistsImmediately(t *testing.T) {
	s := newTestStore(t)
	saver := NewSaver(s, time.Hour, nil)
	defer saver.Close()

	saver.Queue(1, "first")
	saver.Queue(2, "second")
	require.NoError(t, saver.Flush(context.Background()))

	note, err := s.Note(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "first", note)

	note, err = s.Note(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "second", note)
}

func TestSaverSkipsUnchangedContent(t *testing.T) {
	s := newTestStore(t)
	saver := NewSaver(s, time.Hour, nil)
	defer saver.Close()

	saver.Queue(1, "stable")
	require.NoError(t, saver.Flush(context.Background()))

	var before string
	require.NoError(t, s.db.Get(&before,
		"SELECT updated_at FROM notes WHERE todo_id = 1"))

	// Re-queueing identical content must not rewrite the row.
	saver.Queue(1, "stable")
	require.NoError(t, saver.Flush(context.Background()))

	var after string
	require.NoError(t, s.db.Get(&after,
		"SELECT updated_at FROM notes WHERE todo_id = 1"))
	assert.Equal(t, before, after)
}

func TestSaverClearsNoteFromEarlierSession(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SetNote(context.Background(), 1, "leftover"))

	// A fresh saver has no write history for id 1; clearing the note must
	// still reach storage.
	saver := NewSaver(s, time.Hour, nil)
	defer saver.Close()

	saver.Queue(1, "")
	require.NoError(t, saver.Flush(context.Background()))

	note, err := s.Note(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, note)
}

func TestSaverSkipsEditMatchingEarlierSession(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SetNote(context.Background(), 1, "kept"))

	saver := NewSaver(s, time.Hour, nil)
	defer saver.Close()

	var before string
	require.NoError(t, s.db.Get(&before,
		"SELECT updated_at FROM notes WHERE todo_id = 1"))

	saver.Queue(1, "kept")
	require.NoError(t, saver.Flush(context.Background()))

	var after string
	require.NoError(t, s.db.Get(&after,
		"SELECT updated_at FROM notes WHERE todo_id = 1"))
	assert.Equal(t, before, after)
}

func TestSaverClosedRejectsQueue(t *testing.T) {
	s := newTestStore(t)
	saver := NewSaver(s, 10*time.Millisecond, nil)
	require.NoError(t, saver.Close())

	saver.Queue(1, "too late")
	time.Sleep(30 * time.Millisecond)

	note, err := s.Note(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, note)
}

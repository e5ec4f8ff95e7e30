package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keywitness/internal/event"
	"keywitness/internal/keyclass"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "sessions", "keywitness.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func ptr(v float64) *float64 { return &v }

func TestSessionLifecycle(t *testing.T) {
	st := openTestStore(t)

	exists, err := st.SessionExists("s-1")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, st.CreateSession("s-1", 1000))
	// Re-creating the same session is a no-op, not an error.
	require.NoError(t, st.CreateSession("s-1", 2000))

	exists, err = st.SessionExists("s-1")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, st.CloseSession("s-1", 9000))

	err = st.CloseSession("missing", 9000)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestKeystrokeRoundTrip(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.CreateSession("s-1", 0))

	events := []event.Keystroke{
		{Kind: event.KeyDown, Category: keyclass.CategoryLetter, TimestampMs: 10},
		{Kind: event.KeyUp, Category: keyclass.CategoryLetter, TimestampMs: 90,
			DwellTimeMs: ptr(80), FlightTimeMs: ptr(120.5)},
		{Kind: event.KeyDown, Category: keyclass.CategoryNavigation, TimestampMs: 250},
	}
	require.NoError(t, st.AppendKeystrokes("s-1", events))
	require.NoError(t, st.AppendKeystrokes("s-1", nil))

	loaded, err := st.LoadKeystrokes("s-1")
	require.NoError(t, err)
	require.Len(t, loaded, 3)

	assert.Equal(t, event.KeyDown, loaded[0].Kind)
	assert.Equal(t, keyclass.CategoryLetter, loaded[0].Category)
	assert.Nil(t, loaded[0].DwellTimeMs)
	assert.Nil(t, loaded[0].FlightTimeMs)

	require.NotNil(t, loaded[1].DwellTimeMs)
	assert.Equal(t, 80.0, *loaded[1].DwellTimeMs)
	require.NotNil(t, loaded[1].FlightTimeMs)
	assert.Equal(t, 120.5, *loaded[1].FlightTimeMs)

	assert.Equal(t, keyclass.CategoryNavigation, loaded[2].Category)
}

func TestLoadKeystrokesOrdering(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.CreateSession("s-1", 0))

	// Appended out of order; loads must come back timestamp-ordered.
	require.NoError(t, st.AppendKeystrokes("s-1", []event.Keystroke{
		{Kind: event.KeyDown, Category: keyclass.CategoryLetter, TimestampMs: 300},
		{Kind: event.KeyDown, Category: keyclass.CategoryLetter, TimestampMs: 100},
		{Kind: event.KeyDown, Category: keyclass.CategoryLetter, TimestampMs: 200},
	}))

	loaded, err := st.LoadKeystrokes("s-1")
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.Equal(t, int64(100), loaded[0].TimestampMs)
	assert.Equal(t, int64(200), loaded[1].TimestampMs)
	assert.Equal(t, int64(300), loaded[2].TimestampMs)
}

func TestEditRoundTrip(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.CreateSession("s-1", 0))

	edits := []event.Edit{
		{Kind: event.EditInsert, From: 0, To: 0, ContentLength: 1,
			TimestampMs: 50, Source: event.SourceKeyboard},
		{Kind: event.EditPaste, From: 1, To: 1, ContentLength: 300,
			TimestampMs: 800, Source: event.SourcePaste},
	}
	require.NoError(t, st.AppendEdits("s-1", edits))

	loaded, err := st.LoadEdits("s-1")
	require.NoError(t, err)
	assert.Equal(t, edits, loaded)
}

func TestSessionsAreIsolated(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.CreateSession("s-1", 0))
	require.NoError(t, st.CreateSession("s-2", 0))

	require.NoError(t, st.AppendKeystrokes("s-1", []event.Keystroke{
		{Kind: event.KeyDown, Category: keyclass.CategoryLetter, TimestampMs: 10},
	}))

	loaded, err := st.LoadKeystrokes("s-2")
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestForeignKeyEnforced(t *testing.T) {
	st := openTestStore(t)

	err := st.AppendKeystrokes("never-created", []event.Keystroke{
		{Kind: event.KeyDown, Category: keyclass.CategoryLetter, TimestampMs: 10},
	})
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrSessionNotFound))
}

package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adda-Baaj/pressfeed/internal/domain"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndLastRun(t *testing.T) {
	t.Parallel()

	s := openTemp(t)
	started := time.Date(2025, 4, 25, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordRun(domain.RunResult{ProviderID: "b", ItemCount: 3, StartedAt: started}))
	require.NoError(t, s.RecordRun(domain.RunResult{ProviderID: "a", ItemCount: 1, FetchError: "timeout"}))
	require.NoError(t, s.RecordRun(domain.RunResult{ProviderID: "b", ItemCount: 7, StartedAt: started}))

	last, err := s.LastRun("b")
	require.NoError(t, err)
	assert.Equal(t, 7, last.ItemCount)
	assert.True(t, started.Equal(last.StartedAt))

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "a", runs[0].ProviderID)
	assert.Equal(t, "timeout", runs[0].FetchError)
	assert.Equal(t, "b", runs[1].ProviderID)
}

func TestLastRunMissing(t *testing.T) {
	t.Parallel()

	_, err := openTemp(t).LastRun("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordRunRequiresProvider(t *testing.T) {
	t.Parallel()

	assert.Error(t, openTemp(t).RecordRun(domain.RunResult{}))
}

func TestOpenEmptyPath(t *testing.T) {
	t.Parallel()

	_, err := Open("  ")
	assert.Error(t, err)
}

func TestReopenKeepsRuns(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.RecordRun(domain.RunResult{ProviderID: "daiichisankyo", ItemCount: 10}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	last, err := s.LastRun("daiichisankyo")
	require.NoError(t, err)
	assert.Equal(t, 10, last.ItemCount)
}

package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/tierlog/internal/model"
	"github.com/crimson-sun/tierlog/internal/output"
)

func testEvent(name, outcome string) model.Event {
	return model.Event{
		ID:           "evt-1",
		Group:        "ml.sessions",
		GroupVersion: 1,
		Name:         name,
		Timestamp:    time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC),
		Data: model.Record{
			{Key: "structure", Value: model.Record{{Key: "prediction", Value: true}}},
			{Key: "session", Value: model.Record{{Key: "outcome", Value: outcome}}},
		},
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

func TestWriteProducesValidNDJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	out, err := New(path, output.Standard)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, out.Write(context.Background(), testEvent("completion.session", "finished")))
	}
	require.NoError(t, out.Close())

	lines := readLines(t, path)
	require.Len(t, lines, 5)
	for i, line := range lines {
		var ev struct {
			Event string `json:"event"`
			Data  struct {
				Session map[string]any `json:"session"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &ev), "line %d", i)
		assert.Equal(t, "completion.session", ev.Event)
		assert.Equal(t, "finished", ev.Data.Session["outcome"])
	}
}

func TestNewCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events", "2026", "out.jsonl")
	out, err := New(path, output.Standard)
	require.NoError(t, err)
	require.NoError(t, out.Close())
	assert.FileExists(t, path)
}

func TestAppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	for run := 0; run < 2; run++ {
		out, err := New(path, output.Standard)
		require.NoError(t, err)
		require.NoError(t, out.Write(context.Background(), testEvent("completion.session", "finished")))
		require.NoError(t, out.Close())
	}
	assert.Len(t, readLines(t, path), 2)
}

func TestRotationTriggersAtMaxSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	before := testutil.ToFloat64(rotations)

	// Each line is well over 100 bytes, so every write after the first rotates.
	out, err := New(path, output.Standard, WithMaxSize(100))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, out.Write(context.Background(), testEvent("completion.session", "exception")))
	}
	require.NoError(t, out.Close())

	assert.Len(t, readLines(t, path), 1)
	assert.Len(t, readLines(t, path+".1"), 1)
	assert.Len(t, readLines(t, path+".2"), 1)
	assert.Equal(t, float64(2), testutil.ToFloat64(rotations)-before)
}

func TestRotationKeepsMaxRotated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	out, err := New(path, output.Standard, WithMaxSize(100), WithMaxRotated(2))
	require.NoError(t, err)
	for i := 0; i < 6; i++ {
		require.NoError(t, out.Write(context.Background(), testEvent("completion.session", "finished")))
	}
	require.NoError(t, out.Close())

	assert.FileExists(t, path+".1")
	assert.FileExists(t, path+".2")
	assert.NoFileExists(t, path+".3")
}

func TestCloseFlushesData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	out, err := New(path, output.Standard)
	require.NoError(t, err)

	require.NoError(t, out.Write(context.Background(), testEvent("completion.session", "start_failure")))
	assert.Empty(t, readLines(t, path), "expected the event to stay buffered until Close")
	require.NoError(t, out.Close())
	assert.Len(t, readLines(t, path), 1)
}

func TestFlushEach(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	out, err := New(path, output.Standard, WithFlushEach())
	require.NoError(t, err)
	defer out.Close()

	require.NoError(t, out.Write(context.Background(), testEvent("completion.session", "finished")))
	assert.Len(t, readLines(t, path), 1)
}

func TestWriteAfterClose(t *testing.T) {
	out, err := New(filepath.Join(t.TempDir(), "out.jsonl"), output.Standard)
	require.NoError(t, err)
	require.NoError(t, out.Close())
	require.NoError(t, out.Close())
	assert.ErrorIs(t, out.Write(context.Background(), testEvent("completion.session", "finished")), ErrClosed)
}

func TestVerbosityMinimalStripsStructure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	out, err := New(path, output.Minimal)
	require.NoError(t, err)
	require.NoError(t, out.Write(context.Background(), testEvent("completion.session", "exception")))
	require.NoError(t, out.Close())

	lines := readLines(t, path)
	require.Len(t, lines, 1)
	var ev map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &ev))
	data, ok := ev["data"].(map[string]any)
	require.True(t, ok)
	assert.NotContains(t, data, "structure")
	assert.Contains(t, data, "session")
}

func TestConcurrentWritesSafe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	out, err := New(path, output.Standard)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = out.Write(context.Background(), testEvent("completion.session", "finished"))
		}()
	}
	wg.Wait()
	require.NoError(t, out.Close())
	assert.Len(t, readLines(t, path), 50)
}

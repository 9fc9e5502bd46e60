package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifest = `
event: completion.session
prediction: {kind: float, threshold: 0.5}
levels:
  - main:
      - tier: document
        description: [{name: lines, kind: int}]
        analysis: [{name: accepted, kind: bool}]
`

const testSessions = `
id: s-1
before: {attempt: 1}
outcome: finished
tree:
  main: [{tier: document, description: {lines: 3}, analysis: {accepted: true}}]
  prediction: 0.9
---
id: s-2
outcome: exception
analysis: {error: boom}
---
id: s-3
outcome: finished
tree: {main: [{tier: symbol}]}
`

// executeCLI runs the root command in a scratch directory.
func executeCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFixtures(t *testing.T) (manifestPath, sessionsPath string) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	manifestPath = filepath.Join(dir, "completion.yaml")
	sessionsPath = filepath.Join(dir, "sessions.yaml")
	require.NoError(t, os.WriteFile(manifestPath, []byte(testManifest), 0o644))
	require.NoError(t, os.WriteFile(sessionsPath, []byte(testSessions), 0o644))
	return manifestPath, sessionsPath
}

func TestVersion(t *testing.T) {
	writeFixtures(t)
	stdout, _, err := executeCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", stdout)
}

func TestDescribe(t *testing.T) {
	manifestPath, _ := writeFixtures(t)

	stdout, _, err := executeCLI(t, "describe", "--manifest", manifestPath)
	require.NoError(t, err)
	assert.Equal(t, `tierlog.completion.session v1 (1 levels)
  structure: object (nullable)
    main: object
      document: object
        id: int
        description: object
          used: object
            lines: int
          not_used: string_list
        analysis: object
          accepted: bool
    additional: object
    prediction: bool (nullable)
  session: object (open)
`, stdout)
}

func TestDescribeManifestFromEnv(t *testing.T) {
	manifestPath, _ := writeFixtures(t)
	t.Setenv("TIERLOG_SCHEME_MANIFEST", manifestPath)
	t.Setenv("TIERLOG_SCHEME_GROUP", "ide")

	stdout, _, err := executeCLI(t, "describe")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "ide.completion.session v1"), stdout)
}

func TestDescribeRequiresManifest(t *testing.T) {
	writeFixtures(t)
	_, _, err := executeCLI(t, "describe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manifest is required")
}

func TestReplayToStdout(t *testing.T) {
	manifestPath, sessionsPath := writeFixtures(t)

	stdout, stderr, err := executeCLI(t, "replay", "--manifest", manifestPath, "--sessions", sessionsPath)
	require.NoError(t, err)
	assert.Contains(t, stderr, "replayed 3 sessions (1 finished, 0 start failures, 2 exceptions, 1 scheme mismatches)")

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)

	var first struct {
		Group string `json:"group"`
		Event string `json:"event"`
		Data  struct {
			Structure struct {
				Prediction bool `json:"prediction"`
			} `json:"structure"`
			Session map[string]any `json:"session"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "tierlog", first.Group)
	assert.Equal(t, "completion.session", first.Event)
	assert.True(t, first.Data.Structure.Prediction)
	assert.Equal(t, map[string]any{"attempt": float64(1)}, first.Data.Session)

	assert.Contains(t, lines[2], `"error":`)
	assert.NotContains(t, lines[2], `"structure"`)
}

func TestReplayWorkers(t *testing.T) {
	manifestPath, sessionsPath := writeFixtures(t)

	stdout, _, err := executeCLI(t, "replay", "--manifest", manifestPath, "--sessions", sessionsPath, "--workers", "3")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(stdout), "\n"), 3)
}

func TestReplayMinimalVerbosity(t *testing.T) {
	manifestPath, sessionsPath := writeFixtures(t)

	stdout, _, err := executeCLI(t, "replay", "--manifest", manifestPath, "--sessions", sessionsPath, "--verbosity", "minimal")
	require.NoError(t, err)
	assert.NotContains(t, stdout, `"structure"`)
}

func TestReplayToFile(t *testing.T) {
	manifestPath, sessionsPath := writeFixtures(t)
	eventsPath := filepath.Join(t.TempDir(), "events.ndjson")
	t.Setenv("TIERLOG_OUTPUT_FORMAT", "file")
	t.Setenv("TIERLOG_OUTPUT_PATH", eventsPath)

	stdout, _, err := executeCLI(t, "replay", "--manifest", manifestPath, "--sessions", sessionsPath)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(eventsPath)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 3)
}

func TestReplayRequiresSessions(t *testing.T) {
	manifestPath, _ := writeFixtures(t)
	_, _, err := executeCLI(t, "replay", "--manifest", manifestPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "sessions" not set`)
}

func TestInvalidConfigIsRejected(t *testing.T) {
	writeFixtures(t)
	t.Setenv("TIERLOG_OUTPUT_VERBOSITY", "loud")
	_, _, err := executeCLI(t, "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verbosity")
}

func TestReplayToWebhookAsync(t *testing.T) {
	manifestPath, sessionsPath := writeFixtures(t)

	var mu sync.Mutex
	var received []map[string]any
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var batch []map[string]any
		_ = json.NewDecoder(r.Body).Decode(&batch)
		mu.Lock()
		received = append(received, batch...)
		gotAuth = r.Header.Get("Authorization")
		mu.Unlock()
	}))
	defer srv.Close()

	t.Setenv("TIERLOG_OUTPUT_FORMAT", "webhook")
	t.Setenv("TIERLOG_OUTPUT_URL", srv.URL)
	t.Setenv("TIERLOG_OUTPUT_TOKEN", "tok")
	t.Setenv("TIERLOG_OUTPUT_ASYNC", "true")

	stdout, _, err := executeCLI(t, "replay", "--manifest", manifestPath, "--sessions", sessionsPath)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 3)
	assert.Equal(t, "completion.session", received[0]["event"])
	assert.Equal(t, "Bearer tok", gotAuth)
}

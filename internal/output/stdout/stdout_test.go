package stdout

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/crimson-sun/tierlog/internal/model"
	"github.com/crimson-sun/tierlog/internal/output"
)

func testEvent() model.Event {
	return model.Event{
		ID:           "evt-1",
		Group:        "ml.sessions",
		GroupVersion: 2,
		Name:         "completion.session",
		Timestamp:    time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC),
		Data: model.Record{
			{Key: "structure", Value: model.Record{{Key: "prediction", Value: true}}},
			{Key: "session", Value: model.Record{{Key: "duration_ms", Value: 12}}},
		},
	}
}

// captureStdout redirects os.Stdout to capture output.
func captureStdout(fn func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	buf.ReadFrom(r)
	return buf.String()
}

func TestOutputCompactJSON(t *testing.T) {
	result := captureStdout(func() {
		out := New(output.Standard, false)
		out.Write(context.Background(), testEvent())
	})

	// Should be single line (NDJSON).
	lines := strings.Split(strings.TrimSpace(result), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &m); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if m["event"] != "completion.session" {
		t.Fatalf("expected event=completion.session, got %v", m["event"])
	}
	if m["group_version"] != float64(2) {
		t.Fatalf("expected group_version=2, got %v", m["group_version"])
	}
}

func TestOutputPrettyJSON(t *testing.T) {
	var buf bytes.Buffer
	out := NewWriter(&buf, output.Standard, true)
	out.Write(context.Background(), testEvent())

	// Pretty JSON should have multiple lines with indentation.
	if !strings.Contains(buf.String(), "  ") {
		t.Fatal("expected indented output for pretty mode")
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) < 3 {
		t.Fatalf("expected multi-line pretty output, got %d lines", len(lines))
	}
}

func TestOutputMinimalOmitsStructure(t *testing.T) {
	var buf bytes.Buffer
	out := NewWriter(&buf, output.Minimal, false)
	out.Write(context.Background(), testEvent())

	var m map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &m); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	data := m["data"].(map[string]any)
	if _, ok := data["structure"]; ok {
		t.Fatal("structure should be omitted at Minimal")
	}
	if _, ok := data["session"]; !ok {
		t.Fatal("session should be preserved at Minimal")
	}
}

func TestOutputPreservesPayloadOrder(t *testing.T) {
	var buf bytes.Buffer
	out := NewWriter(&buf, output.Full, false)
	out.Write(context.Background(), testEvent())

	line := buf.String()
	if strings.Index(line, `"structure"`) > strings.Index(line, `"session"`) {
		t.Errorf("payload keys out of order: %s", line)
	}
}

func TestConcurrentWritesProduceWholeLines(t *testing.T) {
	var buf bytes.Buffer
	out := NewWriter(&buf, output.Standard, false)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out.Write(context.Background(), testEvent())
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 20 {
		t.Fatalf("got %d lines, want 20", len(lines))
	}
	for i, line := range lines {
		if !json.Valid([]byte(line)) {
			t.Errorf("line %d is not valid JSON: %s", i, line)
		}
	}
}

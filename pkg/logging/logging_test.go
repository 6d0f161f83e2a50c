package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/coreos/go-systemd/v22/journal"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		got := ParseLevel(tt.input)
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewJSONCarriesRunID(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Format: "json", Writer: &buf, RunID: "run-42"})

	logger.Info("test message", "key", "value")

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if m["msg"] != "test message" {
		t.Errorf("msg = %v", m["msg"])
	}
	if m["run_id"] != "run-42" {
		t.Errorf("run_id = %v", m["run_id"])
	}
	if m["key"] != "value" {
		t.Errorf("key = %v", m["key"])
	}
}

func TestNewTextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "warn", Writer: &buf})

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "run_id=") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestNewRunIDUnique(t *testing.T) {
	if NewRunID() == NewRunID() {
		t.Error("run ids should differ")
	}
}

type sent struct {
	msg  string
	pri  journal.Priority
	vars map[string]string
}

type fakeJournal struct {
	mu      sync.Mutex
	entries []sent
}

func (f *fakeJournal) send(msg string, pri journal.Priority, vars map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, sent{msg, pri, vars})
	return nil
}

func TestJournalHandlerMirrors(t *testing.T) {
	var buf bytes.Buffer
	fj := &fakeJournal{}
	next := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger := slog.New(NewJournalHandler(next, slog.LevelInfo, fj.send)).With("run_id", "r1")

	logger.Debug("dropped")
	logger.Error("unit failed", "category", "networking", "err", "boom")
	logger.WithGroup("unit").Warn("slow", "stage", "route")

	if len(fj.entries) != 2 {
		t.Fatalf("journal entries: got %d, want 2", len(fj.entries))
	}

	e := fj.entries[0]
	if e.pri != journal.PriErr {
		t.Errorf("priority = %v, want %v", e.pri, journal.PriErr)
	}
	if e.vars["RUN_ID"] != "r1" || e.vars["CATEGORY"] != "networking" {
		t.Errorf("vars = %v", e.vars)
	}
	if e.msg != "unit failed run_id=r1 category=networking err=boom" {
		t.Errorf("message = %q", e.msg)
	}

	w := fj.entries[1]
	if w.pri != journal.PriWarning {
		t.Errorf("priority = %v", w.pri)
	}
	if w.vars["UNIT_STAGE"] != "route" || w.vars["RUN_ID"] != "r1" {
		t.Errorf("group vars = %v", w.vars)
	}

	if !strings.Contains(buf.String(), "unit failed") || strings.Contains(buf.String(), "dropped") {
		t.Errorf("stderr output = %q", buf.String())
	}
}

func TestFieldName(t *testing.T) {
	tests := map[string]string{
		"run_id":     "RUN_ID",
		"unit.stage": "UNIT_STAGE",
		"_private":   "PRIVATE",
		"9lives":     "F_9LIVES",
		"":           "F_",
	}
	for in, want := range tests {
		if got := fieldName(in); got != want {
			t.Errorf("fieldName(%q) = %q, want %q", in, got, want)
		}
	}
}

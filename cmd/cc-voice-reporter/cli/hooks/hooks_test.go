package hooks

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReceive_AppendsToSessionFile(t *testing.T) {
	dir := t.TempDir()
	if err := Receive(strings.NewReader(`{"session_id":"s1","hook_event_name":"idle_prompt"}`), dir); err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if err := Receive(strings.NewReader(`{"session_id":"s1","hook_event_name":"permission_prompt"}`), dir); err != nil {
		t.Fatalf("Receive() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "s1.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), string(data))
	}
}

func TestReceive_SeparatesBySessionID(t *testing.T) {
	dir := t.TempDir()
	if err := Receive(strings.NewReader(`{"session_id":"s1","hook_event_name":"idle_prompt"}`), dir); err != nil {
		t.Fatal(err)
	}
	if err := Receive(strings.NewReader(`{"session_id":"s2","hook_event_name":"idle_prompt"}`), dir); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(dir, "s1.jsonl")); err != nil {
		t.Error(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "s2.jsonl")); err != nil {
		t.Error(err)
	}
}

func TestReceive_RejectsMissingSessionID(t *testing.T) {
	dir := t.TempDir()
	if err := Receive(strings.NewReader(`{"hook_event_name":"idle_prompt"}`), dir); err == nil {
		t.Error("Receive() error = nil, want error for missing session_id")
	}
}

func TestReceive_RejectsMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	if err := Receive(strings.NewReader(`not json`), dir); err == nil {
		t.Error("Receive() error = nil, want error for malformed JSON")
	}
}

func TestParse_RecognizesIdleAndPermissionPrompts(t *testing.T) {
	lines := []string{
		`{"session_id":"s1","hook_event_name":"idle_prompt"}`,
		`{"session_id":"s1","hook_event_name":"permission_prompt"}`,
	}
	events := Parse(lines, nil)
	if len(events) != 2 {
		t.Fatalf("Parse() = %+v, want 2 events", events)
	}
	if events[0].Kind != KindIdlePrompt || events[1].Kind != KindPermissionPrompt {
		t.Errorf("Parse() = %+v, want idle then permission", events)
	}
}

func TestParse_WarnsAndDropsUnknownSubtype(t *testing.T) {
	var warnings []string
	events := Parse([]string{`{"session_id":"s1","hook_event_name":"mystery"}`}, func(msg string) {
		warnings = append(warnings, msg)
	})
	if len(events) != 0 {
		t.Errorf("Parse() = %+v, want no events", events)
	}
	if len(warnings) != 1 {
		t.Fatalf("got %d warnings, want 1", len(warnings))
	}
}

func TestParse_WarnsAndSkipsMalformedLine(t *testing.T) {
	var warnings []string
	events := Parse([]string{`not json`}, func(msg string) { warnings = append(warnings, msg) })
	if len(events) != 0 {
		t.Errorf("Parse() = %+v, want no events", events)
	}
	if len(warnings) != 1 {
		t.Fatalf("got %d warnings, want 1", len(warnings))
	}
}

func TestParse_IgnoresEmptyLine(t *testing.T) {
	events := Parse([]string{""}, nil)
	if len(events) != 0 {
		t.Fatalf("Parse() = %+v, want no events for empty line", events)
	}
}

// Package hooks implements the out-of-band side channel: a receiver that
// appends one JSON object per invocation to a per-session file, and a
// parser that turns newly-appended lines from cli/tailer into typed
// Event values recognized by the orchestrator.
package hooks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Kind identifies a recognized hook sub-type.
type Kind int

const (
	// KindIdlePrompt corresponds to hook_event_name "idle_prompt".
	KindIdlePrompt Kind = iota
	// KindPermissionPrompt corresponds to hook_event_name "permission_prompt".
	KindPermissionPrompt
)

// Event is a recognized hook record.
type Event struct {
	Kind      Kind
	SessionID string
}

type rawRecord struct {
	SessionID     string `json:"session_id"`
	HookEventName string `json:"hook_event_name"`
}

// Receive reads exactly one JSON object from r and appends it as one line
// to {dir}/{session_id}.jsonl, creating the directory and file as needed.
// Mirrors the append-only write discipline the tailer package expects on
// the read side.
func Receive(r io.Reader, dir string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("hooks: reading stdin: %w", err)
	}

	var rec rawRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("hooks: invalid JSON on stdin: %w", err)
	}
	if rec.SessionID == "" {
		return fmt.Errorf("hooks: missing session_id")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("hooks: creating %s: %w", dir, err)
	}

	path := filepath.Join(dir, rec.SessionID+".jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // session ID is the assistant's own UUID
	if err != nil {
		return fmt.Errorf("hooks: opening %s: %w", path, err)
	}
	defer f.Close()

	compact, err := normalizeLine(data)
	if err != nil {
		return fmt.Errorf("hooks: normalizing record: %w", err)
	}
	if _, err := f.Write(compact); err != nil {
		return fmt.Errorf("hooks: writing %s: %w", path, err)
	}
	return nil
}

// normalizeLine re-marshals data to guarantee a single newline-terminated
// line regardless of the input's own formatting.
func normalizeLine(data []byte) ([]byte, error) {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	compact, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(compact, '\n'), nil
}

// Parse decodes newly-tailed hook lines into recognized Events, calling
// warn for malformed lines and unrecognized hook_event_name values.
func Parse(lines []string, warn func(string)) []Event {
	if warn == nil {
		warn = func(string) {}
	}
	var events []Event
	for _, line := range lines {
		if line == "" {
			continue
		}
		var rec rawRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			warn(fmt.Sprintf("hooks: malformed line: %v", err))
			continue
		}
		switch rec.HookEventName {
		case "idle_prompt":
			events = append(events, Event{Kind: KindIdlePrompt, SessionID: rec.SessionID})
		case "permission_prompt":
			events = append(events, Event{Kind: KindPermissionPrompt, SessionID: rec.SessionID})
		default:
			warn(fmt.Sprintf("hooks: unrecognized hook_event_name %q", rec.HookEventName))
		}
	}
	return events
}

// Package transcript decodes raw NDJSON transcript lines into a small typed
// stream of events the rest of the daemon cares about. The wire format is
// Claude Code's internal, versionless transcript schema; parsing is
// deliberately defensive, following the warn-and-skip discipline of the
// teacher CLI's agent/claudecode/transcript.go rather than failing the
// daemon on a single malformed or unrecognized record.
package transcript

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EventKind discriminates the small set of extracted events the rest of
// the daemon consumes.
type EventKind int

const (
	// EventText is a non-empty assistant text content block.
	EventText EventKind = iota
	// EventToolUse is an assistant tool_use content block.
	EventToolUse
	// EventTurnComplete signals a system/turn_duration record.
	EventTurnComplete
	// EventUserResponse signals a user record (content is not consumed).
	EventUserResponse
)

// Event is the tagged-union result of parsing one transcript line.
type Event struct {
	Kind      EventKind
	RequestID string
	Text      string
	ToolName  string
	Input     json.RawMessage
}

// record is the envelope every transcript line is decoded into before
// dispatching on its Type.
type record struct {
	Type    string          `json:"type"`
	Subtype string          `json:"subtype"`
	Message json.RawMessage `json:"message"`
}

// assistantMessage is the message payload of an "assistant" record.
type assistantMessage struct {
	RequestID string         `json:"requestId"`
	Content   []contentBlock `json:"content"`
}

// contentBlock is one element of an assistant message's content list.
// Unknown Type values are skipped by the caller without error.
type contentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

// Parse decodes a batch of raw transcript lines (already split on "\n",
// trailing newline stripped) into extracted events, in file order. Warnings
// about malformed or unrecognized input are reported through warn, which
// may be nil. No error from a single line aborts the batch.
func Parse(lines []string, warn func(string)) []Event {
	if warn == nil {
		warn = func(string) {}
	}

	var events []Event
	for _, line := range lines {
		events = append(events, parseLine(line, warn)...)
	}
	return events
}

func parseLine(line string, warn func(string)) []Event {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}

	var rec record
	if err := json.Unmarshal([]byte(trimmed), &rec); err != nil {
		warn(fmt.Sprintf("transcript: skipping unparsable line: %v", err))
		return nil
	}

	switch rec.Type {
	case "assistant":
		return parseAssistant(rec, warn)
	case "system":
		if rec.Subtype == "turn_duration" {
			return []Event{{Kind: EventTurnComplete}}
		}
		return nil
	case "user":
		return []Event{{Kind: EventUserResponse}}
	case "progress", "file-history-snapshot":
		return nil
	case "":
		warn("transcript: skipping record with no type")
		return nil
	default:
		warn(fmt.Sprintf("transcript: skipping unknown record type %q", rec.Type))
		return nil
	}
}

func parseAssistant(rec record, warn func(string)) []Event {
	var msg assistantMessage
	if err := json.Unmarshal(rec.Message, &msg); err != nil {
		warn(fmt.Sprintf("transcript: skipping malformed assistant record: %v", err))
		return nil
	}

	var events []Event
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			if body := strings.TrimSpace(block.Text); body != "" {
				events = append(events, Event{
					Kind:      EventText,
					RequestID: msg.RequestID,
					Text:      body,
				})
			}
		case "tool_use":
			if block.Name == "" {
				warn("transcript: skipping tool_use block with no name")
				continue
			}
			events = append(events, Event{
				Kind:      EventToolUse,
				RequestID: msg.RequestID,
				ToolName:  block.Name,
				Input:     block.Input,
			})
		case "thinking":
			// Expected, always ignored.
		default:
			// Unknown content-block kinds are expected to evolve; skip silently.
		}
	}
	return events
}

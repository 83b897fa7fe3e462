package transcript

import "encoding/json"

// toolInput is the superset of fields the per-tool detail rules look at.
// Mirrors the teacher CLI's toolInput/ToolInput pattern, widened with the
// fields cc-voice-reporter's narration needs (command, pattern, question).
type toolInput struct {
	FilePath     string `json:"file_path,omitempty"`
	NotebookPath string `json:"notebook_path,omitempty"`
	Command      string `json:"command,omitempty"`
	Description  string `json:"description,omitempty"`
	Pattern      string `json:"pattern,omitempty"`
	URL          string `json:"url,omitempty"`
	Skill        string `json:"skill,omitempty"`
	Subject      string `json:"subject,omitempty"`
}

// ToolDetail extracts a short human-readable string describing a tool_use
// event's input, by a fixed per-tool rule. Mirrors the teacher's
// extractToolDetail but widened with a generic fallback chain for tools it
// doesn't special-case, since this daemon narrates an open-ended tool set
// rather than the fixed file-modification tool list the teacher cares about.
func ToolDetail(toolName string, input json.RawMessage) string {
	var in toolInput
	_ = json.Unmarshal(input, &in) //nolint:errcheck // best-effort; malformed input just yields an empty detail

	switch toolName {
	case "Read", "Edit", "Write":
		if in.FilePath != "" {
			return in.FilePath
		}
		return in.NotebookPath
	case "Bash":
		if in.Description != "" {
			return in.Description
		}
		return in.Command
	case "Grep", "Glob":
		return in.Pattern
	case "WebFetch", "WebSearch":
		return in.URL
	case "AskUserQuestion":
		return firstQuestion(input)
	}

	switch {
	case in.Description != "":
		return in.Description
	case in.Command != "":
		return in.Command
	case in.FilePath != "":
		return in.FilePath
	case in.NotebookPath != "":
		return in.NotebookPath
	case in.Subject != "":
		return in.Subject
	default:
		return in.Pattern
	}
}

// AskUserQuestionText extracts the question text from an AskUserQuestion
// tool_use event's input, for use in the ask-question notification. Returns
// empty if the input doesn't carry a recognizable question.
func AskUserQuestionText(input json.RawMessage) string {
	return firstQuestion(input)
}

func firstQuestion(input json.RawMessage) string {
	var payload struct {
		Questions []struct {
			Question string `json:"question"`
		} `json:"questions"`
	}
	if err := json.Unmarshal(input, &payload); err != nil {
		return ""
	}
	if len(payload.Questions) == 0 {
		return ""
	}
	return payload.Questions[0].Question
}

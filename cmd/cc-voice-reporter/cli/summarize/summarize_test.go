package summarize

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeChatClient struct {
	mu       sync.Mutex
	calls    []string // user prompts, in call order
	reply    string
	err      error
	systemOf []string
}

func (c *fakeChatClient) Chat(_ context.Context, system, user string) (string, error) {
	c.mu.Lock()
	c.calls = append(c.calls, user)
	c.systemOf = append(c.systemOf, system)
	c.mu.Unlock()
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

func (c *fakeChatClient) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}

func collectSpeak() (func(SpeakItem) error, func() []SpeakItem) {
	var mu sync.Mutex
	var items []SpeakItem
	speak := func(item SpeakItem) error {
		mu.Lock()
		items = append(items, item)
		mu.Unlock()
		return nil
	}
	snapshot := func() []SpeakItem {
		mu.Lock()
		defer mu.Unlock()
		out := make([]SpeakItem, len(items))
		copy(out, items)
		return out
	}
	return speak, snapshot
}

func TestSummarizer_FlushSpeaksReply(t *testing.T) {
	client := &fakeChatClient{reply: "Working on the parser now."}
	speak, spoken := collectSpeak()
	s := New(Config{Client: client, Speak: speak, LanguageName: "English"})

	s.Record(ActivityEvent{SessionKey: "proj:s1", Project: "proj", Session: "s1", ToolName: "Read", Detail: "/a.go"})
	s.Flush(context.Background())

	items := spoken()
	if len(items) != 1 || items[0].Message != "Working on the parser now." {
		t.Fatalf("spoken = %+v, want single reply", items)
	}
}

func TestSummarizer_FlushWithNoEventsIsNoop(t *testing.T) {
	client := &fakeChatClient{reply: "should not be called"}
	speak, spoken := collectSpeak()
	s := New(Config{Client: client, Speak: speak})

	s.Flush(context.Background())

	if len(client.snapshot()) != 0 {
		t.Error("Chat called with no events buffered")
	}
	if len(spoken()) != 0 {
		t.Error("Speak called with no events buffered")
	}
}

func TestSummarizer_FailureSpeaksFallbackMessage(t *testing.T) {
	client := &fakeChatClient{err: errors.New("connection refused")}
	speak, spoken := collectSpeak()
	var reportedErr error
	s := New(Config{Client: client, Speak: speak, OnError: func(err error) { reportedErr = err }})

	s.Record(ActivityEvent{SessionKey: "proj:s1", ToolName: "Bash", Detail: "go test"})
	s.Record(ActivityEvent{SessionKey: "proj:s1", ToolName: "Bash", Detail: "go build"})
	s.Flush(context.Background())

	items := spoken()
	if len(items) != 1 || items[0].Message != "summary failed (2 events)" {
		t.Fatalf("spoken = %+v, want fallback for 2 events", items)
	}
	if reportedErr == nil {
		t.Error("OnError was not called")
	}
}

func TestSummarizer_HistoryCappedAtTwoAndLabeled(t *testing.T) {
	client := &fakeChatClient{reply: "summary"}
	speak, _ := collectSpeak()
	s := New(Config{Client: client, Speak: speak})

	for i := 0; i < 3; i++ {
		s.Record(ActivityEvent{SessionKey: "proj:s1", ToolName: "Bash", Detail: "step"})
		s.Flush(context.Background())
	}

	calls := client.snapshot()
	if len(calls) != 3 {
		t.Fatalf("Chat called %d times, want 3", len(calls))
	}
	if !strings.Contains(calls[0], "Recent actions:") {
		t.Errorf("first call missing Recent actions section: %q", calls[0])
	}
	if strings.Contains(calls[0], "narration") {
		t.Errorf("first call should have no previous-narration section: %q", calls[0])
	}
	if !strings.Contains(calls[1], "Previous narration: summary") {
		t.Errorf("second call missing single previous-narration label: %q", calls[1])
	}
	if !strings.Contains(calls[2], "Older narration: summary") || !strings.Contains(calls[2], "Recent narration: summary") {
		t.Errorf("third call missing older/recent narration labels: %q", calls[2])
	}
}

func TestSummarizer_PrefersTextEventsWhenPresent(t *testing.T) {
	client := &fakeChatClient{reply: "summary"}
	speak, _ := collectSpeak()
	s := New(Config{Client: client, Speak: speak})

	s.Record(ActivityEvent{SessionKey: "proj:s1", ToolName: "Bash", Detail: "go test"})
	s.Record(ActivityEvent{SessionKey: "proj:s1", IsText: true, Detail: "Looking at the failure."})
	s.Flush(context.Background())

	calls := client.snapshot()
	if strings.Contains(calls[0], "go test") {
		t.Errorf("tool_use entry should be excluded once a text event is present: %q", calls[0])
	}
	if !strings.Contains(calls[0], "Looking at the failure.") {
		t.Errorf("text entry missing: %q", calls[0])
	}
}

func TestSummarizer_ElidesBeyondMaxPromptEvents(t *testing.T) {
	client := &fakeChatClient{reply: "summary"}
	speak, _ := collectSpeak()
	s := New(Config{Client: client, Speak: speak, MaxPromptEvents: 2})

	for i := 0; i < 5; i++ {
		s.Record(ActivityEvent{SessionKey: "proj:s1", ToolName: "Bash", Detail: "step"})
	}
	s.Flush(context.Background())

	calls := client.snapshot()
	if !strings.Contains(calls[0], "earlier entries omitted") {
		t.Errorf("expected elision note, got %q", calls[0])
	}
}

func TestSummarizer_SystemPromptNamesLanguageAndRequestsSingleUtterance(t *testing.T) {
	client := &fakeChatClient{reply: "summary"}
	speak, _ := collectSpeak()
	s := New(Config{Client: client, Speak: speak, LanguageName: "French"})

	s.Record(ActivityEvent{SessionKey: "proj:s1", ToolName: "Bash", Detail: "step"})
	s.Flush(context.Background())

	if len(client.systemOf) != 1 {
		t.Fatal("Chat not called")
	}
	system := client.systemOf[0]
	if !strings.Contains(system, "French") {
		t.Errorf("system prompt missing language: %q", system)
	}
	if !strings.Contains(strings.ToLower(system), "one short") {
		t.Errorf("system prompt missing single-utterance instruction: %q", system)
	}
}

func TestSummarizer_IndependentSessionsFlushSeparately(t *testing.T) {
	client := &fakeChatClient{reply: "summary"}
	speak, spoken := collectSpeak()
	s := New(Config{Client: client, Speak: speak})

	s.Record(ActivityEvent{SessionKey: "proj:s1", Session: "s1", ToolName: "Bash", Detail: "a"})
	s.Record(ActivityEvent{SessionKey: "proj:s2", Session: "s2", ToolName: "Bash", Detail: "b"})
	s.Flush(context.Background())

	if len(client.snapshot()) != 2 {
		t.Fatalf("Chat called %d times, want 2 (one per session)", len(client.snapshot()))
	}
	if len(spoken()) != 2 {
		t.Fatalf("Speak called %d times, want 2", len(spoken()))
	}
}

func TestSummarizer_StartArmsTimerThatFlushesEventually(t *testing.T) {
	client := &fakeChatClient{reply: "summary"}
	speak, spoken := collectSpeak()
	s := New(Config{Client: client, Speak: speak, Interval: 20 * time.Millisecond})

	s.Record(ActivityEvent{SessionKey: "proj:s1", ToolName: "Bash", Detail: "a"})
	s.Start()
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(spoken()) == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timer never triggered a flush")
}

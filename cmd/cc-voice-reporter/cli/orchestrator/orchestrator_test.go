package orchestrator

import (
	"context"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/config"
	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/speech"
	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/summarize"
	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/transcript"
)

type spoken struct {
	mu    sync.Mutex
	items []speech.Item
}

func (s *spoken) record(item speech.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, item)
}

func (s *spoken) snapshot() []speech.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]speech.Item, len(s.items))
	copy(out, s.items)
	return out
}

func noopRunner(_ context.Context, _ string, _ ...string) *exec.Cmd {
	return exec.Command("true")
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *spoken) {
	t.Helper()
	sp := &spoken{}
	queue := speech.New(speech.Config{
		Command: []string{"say"},
		Runner:  noopRunner,
		OnSpeak: sp.record,
	})
	t.Cleanup(queue.Dispose)

	return New(queue, nil, config.Filter{}, DefaultMessages()), sp
}

func waitFor(t *testing.T, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestDispatch_TurnCompleteSpeaksWhenNotSuppressed(t *testing.T) {
	o, sp := newTestOrchestrator(t)
	fc := FileContext{ProjectEncoded: "proj", ProjectDisplay: "proj", SessionID: "s1"}

	o.DispatchEvents(context.Background(), fc, []transcript.Event{{Kind: transcript.EventTurnComplete}})

	waitFor(t, func() bool { return len(sp.snapshot()) == 1 })
	if sp.snapshot()[0].Message != "awaiting input" {
		t.Errorf("message = %q, want %q", sp.snapshot()[0].Message, "awaiting input")
	}
}

func TestDispatch_SubagentTurnCompleteIgnored(t *testing.T) {
	o, sp := newTestOrchestrator(t)
	fc := FileContext{ProjectEncoded: "proj", ProjectDisplay: "proj", SessionID: "s1", IsSubagent: true}

	o.DispatchEvents(context.Background(), fc, []transcript.Event{{Kind: transcript.EventTurnComplete}})

	time.Sleep(100 * time.Millisecond)
	if len(sp.snapshot()) != 0 {
		t.Errorf("spoke %v, want nothing for subagent turn_complete", sp.snapshot())
	}
}

func TestDispatch_AskQuestionDeferredAndSpoken(t *testing.T) {
	o, sp := newTestOrchestrator(t)
	fc := FileContext{ProjectEncoded: "proj", ProjectDisplay: "proj", SessionID: "s1"}

	events := []transcript.Event{
		{Kind: transcript.EventText, Text: "Looking into it."},
		{Kind: transcript.EventToolUse, ToolName: "AskUserQuestion", Input: []byte(`{"questions":[{"question":"Proceed?"}]}`)},
	}
	o.DispatchEvents(context.Background(), fc, events)

	waitFor(t, func() bool { return len(sp.snapshot()) == 1 })
	if sp.snapshot()[0].Message != "Proceed?. Awaiting confirmation" {
		t.Errorf("message = %q", sp.snapshot()[0].Message)
	}
}

func TestDispatch_UserResponseCancelsSameBatchAskQuestion(t *testing.T) {
	o, sp := newTestOrchestrator(t)
	fc := FileContext{ProjectEncoded: "proj", ProjectDisplay: "proj", SessionID: "s1"}

	events := []transcript.Event{
		{Kind: transcript.EventToolUse, ToolName: "AskUserQuestion", Input: []byte(`{"questions":[{"question":"Proceed?"}]}`)},
		{Kind: transcript.EventUserResponse},
	}
	o.DispatchEvents(context.Background(), fc, events)

	time.Sleep(100 * time.Millisecond)
	if len(sp.snapshot()) != 0 {
		t.Errorf("spoke %v, want ask-question cancelled by same-batch user_response", sp.snapshot())
	}
}

func TestDispatch_TurnCompleteSuppressedAfterAskQuestion(t *testing.T) {
	o, sp := newTestOrchestrator(t)
	fc := FileContext{ProjectEncoded: "proj", ProjectDisplay: "proj", SessionID: "s1"}

	o.DispatchEvents(context.Background(), fc, []transcript.Event{
		{Kind: transcript.EventToolUse, ToolName: "AskUserQuestion", Input: []byte(`{"questions":[{"question":"Proceed?"}]}`)},
	})
	waitFor(t, func() bool { return len(sp.snapshot()) == 1 })

	o.DispatchEvents(context.Background(), fc, []transcript.Event{{Kind: transcript.EventTurnComplete}})
	time.Sleep(150 * time.Millisecond)

	if len(sp.snapshot()) != 1 {
		t.Errorf("spoke %v, want turn_complete suppressed after higher-priority ask-question", sp.snapshot())
	}
}

func TestDispatch_ActivityResetClearsSuppression(t *testing.T) {
	o, sp := newTestOrchestrator(t)
	fc := FileContext{ProjectEncoded: "proj", ProjectDisplay: "proj", SessionID: "s1"}

	o.DispatchEvents(context.Background(), fc, []transcript.Event{
		{Kind: transcript.EventToolUse, ToolName: "AskUserQuestion", Input: []byte(`{"questions":[{"question":"Proceed?"}]}`)},
	})
	waitFor(t, func() bool { return len(sp.snapshot()) == 1 })

	// New assistant text resets suppression for the session.
	o.DispatchEvents(context.Background(), fc, []transcript.Event{{Kind: transcript.EventText, Text: "Back to it."}})
	o.DispatchEvents(context.Background(), fc, []transcript.Event{{Kind: transcript.EventTurnComplete}})

	waitFor(t, func() bool { return len(sp.snapshot()) == 2 })
}

func TestDispatch_HookEventsRespectSuppression(t *testing.T) {
	o, sp := newTestOrchestrator(t)
	fc := FileContext{ProjectEncoded: "proj", ProjectDisplay: "proj", SessionID: "s1"}

	o.DispatchEvents(context.Background(), fc, []transcript.Event{
		{Kind: transcript.EventToolUse, ToolName: "AskUserQuestion", Input: []byte(`{"questions":[{"question":"Proceed?"}]}`)},
	})
	waitFor(t, func() bool { return len(sp.snapshot()) == 1 })

	o.DispatchHookLines(context.Background(), fc, []string{`{"session_id":"s1","hook_event_name":"idle_prompt"}`})
	time.Sleep(100 * time.Millisecond)

	if len(sp.snapshot()) != 1 {
		t.Errorf("spoke %v, want idle_prompt suppressed after ask-question", sp.snapshot())
	}
}

func TestDispatch_FilterExcludesProject(t *testing.T) {
	sp := &spoken{}
	queue := speech.New(speech.Config{Command: []string{"say"}, Runner: noopRunner, OnSpeak: sp.record})
	defer queue.Dispose()

	o := New(queue, nil, config.Filter{Exclude: []string{"scratch"}}, DefaultMessages())
	fc := FileContext{ProjectEncoded: "scratch", ProjectDisplay: "scratch", SessionID: "s1"}

	o.DispatchEvents(context.Background(), fc, []transcript.Event{{Kind: transcript.EventTurnComplete}})
	time.Sleep(100 * time.Millisecond)

	if len(sp.snapshot()) != 0 {
		t.Errorf("spoke %v, want nothing for excluded project", sp.snapshot())
	}
}

func TestDispatch_RecordsActivityIntoSummarizer(t *testing.T) {
	sp := &spoken{}
	queue := speech.New(speech.Config{Command: []string{"say"}, Runner: noopRunner, OnSpeak: sp.record})
	defer queue.Dispose()

	sm := summarize.New(summarize.Config{Client: recordingClient{}, Speak: func(summarize.SpeakItem) error { return nil }})

	o := New(queue, sm, config.Filter{}, DefaultMessages())
	fc := FileContext{ProjectEncoded: "proj", ProjectDisplay: "proj", SessionID: "s1"}

	o.DispatchEvents(context.Background(), fc, []transcript.Event{
		{Kind: transcript.EventToolUse, ToolName: "Read", Input: []byte(`{"file_path":"/a.go"}`)},
	})

	sm.Flush(context.Background())
}

type recordingClient struct{}

func (recordingClient) Chat(_ context.Context, _, _ string) (string, error) {
	return "ack", nil
}

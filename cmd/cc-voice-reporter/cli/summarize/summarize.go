// Package summarize accumulates per-session activity events and, on a
// throttled timer, turns them into a short spoken narration via a local
// LLM chat endpoint. Grounded on the teacher CLI's summarize package for
// the per-tool detail and prompt-building idiom (see transcript.ToolDetail,
// adapted from summarize.go's extractToolDetail), generalized here from a
// one-shot post-session summary into a recurring live narration.
package summarize

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// maxHistory is the number of prior summaries kept per session, per §4.4's
// "history[sessionKey] -> deque<string> (capacity 2, oldest first)".
const maxHistory = 2

// DefaultMaxPromptEvents bounds how many activity events go into one
// prompt, per §4.4's "limited to at most maxPromptEvents entries (default
// 10)".
const DefaultMaxPromptEvents = 10

// DefaultInterval is the default throttle period between flushes.
const DefaultInterval = 5 * time.Second

// ActivityEvent is either a tool_use or text activity, per spec §3.
type ActivityEvent struct {
	SessionKey     string
	Project        string
	ProjectDisplay string
	Session        string
	ToolName       string // empty for text events
	Detail         string // tool_use detail, or text snippet
	IsText         bool
}

// Speaker is the subset of speech.Queue the summarizer depends on, kept as
// an interface so tests don't need a real TTS binary.
type Speaker interface {
	Speak(item SpeakItem) error
}

// SpeakItem mirrors the fields of speech.Item the summarizer needs,
// avoiding a dependency from summarize -> speech in favor of the caller
// adapting this into a real speech.Item.
type SpeakItem struct {
	Message        string
	ProjectEncoded string
	ProjectDisplay string
	Session        string
}

// ChatClient is the subset of Client the summarizer depends on.
type ChatClient interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// Config configures a Summarizer.
type Config struct {
	Client          ChatClient
	Speak           func(SpeakItem) error
	Language        string // BCP-47-ish code, e.g. "en" or "fr-CA"
	LanguageName    string // readable name, e.g. "English"
	Interval        time.Duration
	MaxPromptEvents int
	Timeout         time.Duration
	OnError         func(err error)
	// FailureMessage renders the localized "summary failed (N events)"
	// fallback. Defaults to an English template.
	FailureMessage func(eventCount int) string
}

// Summarizer accumulates activity events per session and periodically
// flushes them to the LLM, per spec §4.4.
type Summarizer struct {
	client          ChatClient
	speak           func(SpeakItem) error
	language        string
	languageName    string
	maxPromptEvents int
	timeout         time.Duration
	onError         func(err error)
	failureMessage  func(eventCount int) string
	interval        time.Duration

	flushMu sync.Mutex // held for the whole of Flush, so flushes never overlap

	mu        sync.Mutex
	events    map[string][]ActivityEvent
	history   map[string][]string
	timer    *time.Timer
	flushing bool
	stopped  bool
}

// New creates a Summarizer. Call Start to begin the throttle timer.
func New(cfg Config) *Summarizer {
	onError := cfg.OnError
	if onError == nil {
		onError = func(error) {}
	}
	maxPromptEvents := cfg.MaxPromptEvents
	if maxPromptEvents <= 0 {
		maxPromptEvents = DefaultMaxPromptEvents
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	failureMessage := cfg.FailureMessage
	if failureMessage == nil {
		failureMessage = func(n int) string {
			return fmt.Sprintf("summary failed (%d events)", n)
		}
	}
	languageName := cfg.LanguageName
	if languageName == "" {
		languageName = cfg.Language
	}

	return &Summarizer{
		client:          cfg.Client,
		speak:           cfg.Speak,
		language:        cfg.Language,
		languageName:    languageName,
		maxPromptEvents: maxPromptEvents,
		timeout:         timeout,
		onError:         onError,
		failureMessage:  failureMessage,
		interval:        interval,
		events:          make(map[string][]ActivityEvent),
		history:         make(map[string][]string),
	}
}

// Start arms the throttle timer.
func (s *Summarizer) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = false
	s.armTimerLocked()
}

// Stop disarms the throttle timer. Buffered events are left in place; call
// Flush first to drain them.
func (s *Summarizer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Record appends event to its session's buffer.
func (s *Summarizer) Record(event ActivityEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.SessionKey] = append(s.events[event.SessionKey], event)
}

// Flush forces a synchronous flush of every session's buffered events,
// per spec §4.4's seven-step protocol. A call made while another flush is
// running waits for it to finish, then flushes what was buffered since.
func (s *Summarizer) Flush(ctx context.Context) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if len(s.events) == 0 {
		s.mu.Unlock()
		if !s.stopped {
			s.armTimerLocked2()
		}
		return
	}
	if s.flushing {
		s.mu.Unlock()
		return
	}
	s.flushing = true
	snapshots := make(map[string][]ActivityEvent, len(s.events))
	for key, buf := range s.events {
		snapshots[key] = buf
	}
	s.events = make(map[string][]ActivityEvent)
	s.mu.Unlock()

	for key, buf := range snapshots {
		s.flushSession(ctx, key, buf)
	}

	s.mu.Lock()
	s.flushing = false
	s.armTimerLocked()
	s.mu.Unlock()
}

// flushSession builds the prompt for one session's snapshot, calls the
// chat endpoint, and speaks the result (or a failure fallback).
func (s *Summarizer) flushSession(ctx context.Context, sessionKey string, events []ActivityEvent) {
	if len(events) == 0 {
		return
	}
	project := events[0].Project
	projectDisplay := events[0].ProjectDisplay
	session := events[0].Session

	s.mu.Lock()
	history := append([]string(nil), s.history[sessionKey]...)
	s.mu.Unlock()

	system := s.buildSystemPrompt()
	user, _ := s.buildUserPrompt(history, events)

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	reply, err := s.client.Chat(reqCtx, system, user)
	cancel()

	if err != nil {
		s.onError(fmt.Errorf("summarize: chat request failed for %s: %w", sessionKey, err))
		s.speakOrLog(SpeakItem{
			Message:        s.failureMessage(len(events)),
			ProjectEncoded: project,
			ProjectDisplay: projectDisplay,
			Session:        session,
		})
		return
	}

	s.speakOrLog(SpeakItem{
		Message:        reply,
		ProjectEncoded: project,
		ProjectDisplay: projectDisplay,
		Session:        session,
	})

	s.mu.Lock()
	hist := append(s.history[sessionKey], reply)
	if len(hist) > maxHistory {
		hist = hist[len(hist)-maxHistory:]
	}
	s.history[sessionKey] = hist
	s.mu.Unlock()
}

func (s *Summarizer) speakOrLog(item SpeakItem) {
	if s.speak == nil {
		return
	}
	if err := s.speak(item); err != nil {
		s.onError(fmt.Errorf("summarize: speak failed: %w", err))
	}
}

// buildSystemPrompt satisfies §4.4's three system-prompt requirements:
// target language, single-TTS-utterance framing, and continuity with
// prior narration.
func (s *Summarizer) buildSystemPrompt() string {
	language := s.languageName
	if language == "" {
		language = "English"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You narrate a software assistant's ongoing work in %s, in the first person.\n", language)
	b.WriteString("Your reply is spoken aloud by a text-to-speech engine: produce exactly one short, natural spoken utterance, with no headings, lists, or meta-commentary about being an AI.\n")
	b.WriteString("Continue the story from the previous narration(s) given below rather than repeating them.")
	return b.String()
}

// buildUserPrompt builds the labeled previous-narration section and the
// "Recent actions:" section per §4.4 step 4, and returns how many entries
// were elided.
func (s *Summarizer) buildUserPrompt(history []string, events []ActivityEvent) (string, int) {
	var b strings.Builder

	switch len(history) {
	case 0:
		// no previous narration section
	case 1:
		fmt.Fprintf(&b, "Previous narration: %s\n\n", history[0])
	default:
		older := history[len(history)-2]
		recent := history[len(history)-1]
		fmt.Fprintf(&b, "Older narration: %s\nRecent narration: %s\n\n", older, recent)
	}

	selected, elided := selectEvents(events, s.maxPromptEvents)

	b.WriteString("Recent actions:\n")
	for i, event := range selected {
		if i > 0 {
			b.WriteString("---\n")
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, formatEntry(event))
	}
	if elided > 0 {
		fmt.Fprintf(&b, "(%d earlier entries omitted)\n", elided)
	}

	return b.String(), elided
}

// selectEvents applies §4.4's truncation rule: if the snapshot has at
// least one text event, keep text events only; otherwise keep the
// original mix. Either way, cap at maxPromptEvents, keeping the most
// recent entries.
func selectEvents(events []ActivityEvent, maxPromptEvents int) ([]ActivityEvent, int) {
	pool := events
	hasText := false
	for _, e := range events {
		if e.IsText {
			hasText = true
			break
		}
	}
	if hasText {
		pool = make([]ActivityEvent, 0, len(events))
		for _, e := range events {
			if e.IsText {
				pool = append(pool, e)
			}
		}
	}

	if len(pool) <= maxPromptEvents {
		return pool, 0
	}
	elided := len(pool) - maxPromptEvents
	return pool[elided:], elided
}

func formatEntry(event ActivityEvent) string {
	if event.IsText {
		return "Text output: " + event.Detail
	}
	return fmt.Sprintf("%s: %s", event.ToolName, event.Detail)
}

func (s *Summarizer) armTimerLocked() {
	if s.stopped {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.interval, func() {
		s.Flush(context.Background())
	})
}

// armTimerLocked2 re-arms without re-entering Flush's lock; used from the
// empty-buffer early-return path where the mutex is already released.
func (s *Summarizer) armTimerLocked2() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armTimerLocked()
}

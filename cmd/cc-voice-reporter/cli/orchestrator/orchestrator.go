// Package orchestrator composes the transcript tailer, hook tailer, speech
// queue, and summarizer into the full daemon, implementing the
// notification-priority suppression state machine that is this system's
// central piece of original logic. Grounded on the teacher CLI's
// subsystem-composition style in cmd/entire/cli/root.go and its
// context-propagated logging idiom from cli/logging.
package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/config"
	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/hooks"
	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/logging"
	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/project"
	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/speech"
	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/summarize"
	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/transcript"
)

// Level is a notification priority, highest first.
type Level int

const (
	// LevelAskQuestion is L4: tool_use AskUserQuestion.
	LevelAskQuestion Level = iota
	// LevelIdlePrompt is L3: hook idle_prompt.
	LevelIdlePrompt
	// LevelPermissionPrompt is L2: hook permission_prompt.
	LevelPermissionPrompt
	// LevelTurnComplete is L1: turn_complete on the main session.
	LevelTurnComplete
)

// Messages supplies localized notification text. Built by the CLI layer
// from the resolved language; kept as plain strings and funcs here so
// orchestrator tests don't depend on any particular localization mechanism.
type Messages struct {
	AskQuestion      func(question string) string
	PermissionNeeded string
	AwaitingInput    string
	SummaryFailed    func(eventCount int) string
}

// DefaultMessages is the English fallback used when the CLI layer doesn't
// override it.
func DefaultMessages() Messages {
	return Messages{
		AskQuestion:      func(q string) string { return fmt.Sprintf("%s. Awaiting confirmation", q) },
		PermissionNeeded: "permission required",
		AwaitingInput:    "awaiting input",
		SummaryFailed:    func(n int) string { return fmt.Sprintf("summary failed (%d events)", n) },
	}
}

// sessionState tracks the suppression flags for one session key.
type sessionState struct {
	suppressed [LevelTurnComplete + 1]bool
}

// Orchestrator wires the parser output and hook events through the
// notification-priority state machine into the speech queue and
// summarizer.
type Orchestrator struct {
	Speech     *speech.Queue
	Summarizer *summarize.Summarizer
	Filter     config.Filter
	Messages   Messages

	mu       sync.Mutex
	sessions map[string]*sessionState
}

// New creates an Orchestrator. Speech must be supplied; a nil Summarizer
// disables summarization. A zero Filter allows every project, and any
// Messages field left unset falls back to DefaultMessages.
func New(sp *speech.Queue, sm *summarize.Summarizer, filter config.Filter, messages Messages) *Orchestrator {
	def := DefaultMessages()
	if messages.AskQuestion == nil {
		messages.AskQuestion = def.AskQuestion
	}
	if messages.PermissionNeeded == "" {
		messages.PermissionNeeded = def.PermissionNeeded
	}
	if messages.AwaitingInput == "" {
		messages.AwaitingInput = def.AwaitingInput
	}
	if messages.SummaryFailed == nil {
		messages.SummaryFailed = def.SummaryFailed
	}
	return &Orchestrator{
		Speech:     sp,
		Summarizer: sm,
		Filter:     filter,
		Messages:   messages,
		sessions:   make(map[string]*sessionState),
	}
}

// stateFor returns (creating if needed) the suppression state for a
// session key.
func (o *Orchestrator) stateFor(sessionKey string) *sessionState {
	o.mu.Lock()
	defer o.mu.Unlock()
	st, ok := o.sessions[sessionKey]
	if !ok {
		st = &sessionState{}
		o.sessions[sessionKey] = st
	}
	return st
}

// resetSuppression clears every suppression flag for a session key, per
// §4.5's "activity reset" rule.
func (o *Orchestrator) resetSuppression(sessionKey string) {
	st := o.stateFor(sessionKey)
	o.mu.Lock()
	st.suppressed = [LevelTurnComplete + 1]bool{}
	o.mu.Unlock()
}

// dispatchNotification is the single primitive implementing suppression
// and tagging for every notification level, per §4.5.
func (o *Orchestrator) dispatchNotification(ctx context.Context, level Level, message, sessionKey, projectEncoded, projectDisplay, session string) {
	st := o.stateFor(sessionKey)

	o.mu.Lock()
	for higher := LevelAskQuestion; higher < level; higher++ {
		if st.suppressed[higher] {
			o.mu.Unlock()
			logging.Debug(ctx, "notification suppressed", "level", int(level), "session_key", sessionKey)
			return
		}
	}
	st.suppressed[level] = true
	o.mu.Unlock()

	err := o.Speech.Speak(speech.Item{
		Message:        message,
		ProjectEncoded: projectEncoded,
		ProjectDisplay: projectDisplay,
		Session:        session,
		CancelTag:      notificationTag(sessionKey),
	})
	if err != nil && err != speech.ErrQueueClosed {
		logging.Warn(ctx, "failed to enqueue notification", "error", err)
	}
}

func notificationTag(sessionKey string) string {
	return "notification:" + sessionKey
}

// batch is the per-dispatch-call working state for batch ordering: a
// deferred AskUserQuestion is spoken only if no user_response for the same
// session arrives later in the same batch.
type batch struct {
	deferredAsk map[string]deferredAskEvent
	userResp    map[string]bool
}

type deferredAskEvent struct {
	sessionKey     string
	projectEncoded string
	projectDisplay string
	session        string
	question       string
}

func newBatch() *batch {
	return &batch{
		deferredAsk: make(map[string]deferredAskEvent),
		userResp:    make(map[string]bool),
	}
}

// FileContext carries the per-file identity the dispatch pipeline derives
// from a transcript path via §4.1's helpers, supplied by the caller that
// owns the tailer-to-path mapping.
type FileContext struct {
	ProjectEncoded string
	ProjectDisplay string
	SessionID      string
	IsSubagent     bool
}

// SessionKey returns the session key for this file context.
func (fc FileContext) SessionKey() string {
	return project.SessionKey(fc.ProjectEncoded, fc.SessionID)
}

// FileContextFor derives a FileContext from a tailed file's absolute path
// and the projects root directory, using the §4.1 path-parsing helpers.
func FileContextFor(path, projectsDir string) FileContext {
	encodedDir := project.ExtractProjectDir(path, projectsDir)
	return FileContext{
		ProjectEncoded: encodedDir,
		ProjectDisplay: project.ResolveDisplayName(encodedDir),
		SessionID:      project.ExtractSessionID(path, projectsDir),
		IsSubagent:     project.IsSubagent(path),
	}
}

// contextFor enriches ctx with the session/project/component attributes
// every log line emitted while processing fc should carry, per
// logging.WithSession/WithProject/WithComponent's doc comment.
func contextFor(ctx context.Context, fc FileContext, component string) context.Context {
	if fc.SessionID != "" {
		ctx = logging.WithSession(ctx, fc.SessionID)
	}
	if fc.ProjectEncoded != "" {
		ctx = logging.WithProject(ctx, fc.ProjectEncoded)
	}
	return logging.WithComponent(ctx, component)
}

// DispatchTranscriptLines parses a batch of newly-tailed transcript lines
// and runs them through the full orchestrator pipeline.
func (o *Orchestrator) DispatchTranscriptLines(ctx context.Context, fc FileContext, lines []string) {
	if !o.Filter.Allows(fc.ProjectDisplay) {
		return
	}
	ctx = contextFor(ctx, fc, "orchestrator")

	events := transcript.Parse(lines, func(msg string) { logging.Warn(ctx, msg) })
	o.DispatchEvents(ctx, fc, events)
}

// DispatchEvents runs one batch of already-parsed transcript events
// through the pipeline, per §4.5's dispatch pipeline and batch ordering
// rules.
func (o *Orchestrator) DispatchEvents(ctx context.Context, fc FileContext, events []transcript.Event) {
	if !o.Filter.Allows(fc.ProjectDisplay) {
		return
	}
	ctx = contextFor(ctx, fc, "orchestrator")
	sessionKey := fc.SessionKey()
	b := newBatch()

	for _, event := range events {
		switch event.Kind {
		case transcript.EventText:
			o.resetSuppression(sessionKey)
			if o.Summarizer != nil {
				o.Summarizer.Record(summarize.ActivityEvent{
					SessionKey:     sessionKey,
					Project:        fc.ProjectEncoded,
					ProjectDisplay: fc.ProjectDisplay,
					Session:        fc.SessionID,
					IsText:         true,
					Detail:         snippet(event.Text, 80),
				})
			}

		case transcript.EventToolUse:
			if event.ToolName == "AskUserQuestion" {
				b.deferredAsk[sessionKey] = deferredAskEvent{
					sessionKey:     sessionKey,
					projectEncoded: fc.ProjectEncoded,
					projectDisplay: fc.ProjectDisplay,
					session:        fc.SessionID,
					question:       transcript.AskUserQuestionText(event.Input),
				}
				continue
			}
			o.resetSuppression(sessionKey)
			if o.Summarizer != nil {
				o.Summarizer.Record(summarize.ActivityEvent{
					SessionKey:     sessionKey,
					Project:        fc.ProjectEncoded,
					ProjectDisplay: fc.ProjectDisplay,
					Session:        fc.SessionID,
					ToolName:       event.ToolName,
					Detail:         transcript.ToolDetail(event.ToolName, event.Input),
				})
			}

		case transcript.EventTurnComplete:
			if fc.IsSubagent {
				continue
			}
			if o.Summarizer != nil {
				o.Summarizer.Flush(ctx)
			}
			o.dispatchNotification(ctx, LevelTurnComplete, o.Messages.AwaitingInput, sessionKey, fc.ProjectEncoded, fc.ProjectDisplay, fc.SessionID)

		case transcript.EventUserResponse:
			b.userResp[sessionKey] = true
			o.resetSuppression(sessionKey)
			o.Speech.CancelByTag(notificationTag(sessionKey))
		}
	}

	for sessionKey, ask := range b.deferredAsk {
		if b.userResp[sessionKey] {
			continue
		}
		if o.Summarizer != nil {
			o.Summarizer.Flush(ctx)
		}
		o.dispatchNotification(ctx, LevelAskQuestion, o.Messages.AskQuestion(ask.question), ask.sessionKey, ask.projectEncoded, ask.projectDisplay, ask.session)
	}
}

// DispatchHookLines parses newly-tailed hook lines and dispatches the
// corresponding L2/L3 notifications.
func (o *Orchestrator) DispatchHookLines(ctx context.Context, fc FileContext, lines []string) {
	if !o.Filter.Allows(fc.ProjectDisplay) {
		return
	}
	ctx = contextFor(ctx, fc, "hooks")

	events := hooks.Parse(lines, func(msg string) { logging.Warn(ctx, msg) })
	sessionKey := fc.SessionKey()

	for _, event := range events {
		switch event.Kind {
		case hooks.KindIdlePrompt:
			o.dispatchNotification(ctx, LevelIdlePrompt, o.Messages.PermissionNeeded, sessionKey, fc.ProjectEncoded, fc.ProjectDisplay, fc.SessionID)
		case hooks.KindPermissionPrompt:
			o.dispatchNotification(ctx, LevelPermissionPrompt, o.Messages.PermissionNeeded, sessionKey, fc.ProjectEncoded, fc.ProjectDisplay, fc.SessionID)
		}
	}
}

// snippet truncates s to at most n runes, used for the summarizer's text
// activity events per spec §3 ("the first ~80 characters of a text
// event").
func snippet(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

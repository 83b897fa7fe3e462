// Package speech serializes calls to a single external text-to-speech
// binary through a session- and project-aware priority queue, following
// the same os/exec.CommandContext + injectable CommandRunner idiom the
// teacher CLI uses to shell out to the Claude CLI in
// summarize/claude.go.
package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// ErrQueueClosed is returned by Speak after StopGracefully or Dispose.
var ErrQueueClosed = errors.New("speech: queue is closed")

// CommandRunner builds the *exec.Cmd used to invoke the TTS binary.
// Injectable for testing, mirroring ClaudeGenerator.CommandRunner.
type CommandRunner func(ctx context.Context, name string, args ...string) *exec.Cmd

// Item is one message enqueued for speech.
type Item struct {
	Message        string
	ProjectEncoded string // empty means no project affinity
	ProjectDisplay string
	Session        string // empty means no session affinity
	CancelTag      string // empty means not cancellable by tag

	announcement    bool
	switchAnnounced bool // re-queued behind its own project-switch announcement
	seq             uint64
}

// Queue is a single-slot worker over a tagged priority queue. Exactly one
// TTS child process is alive at any moment across the whole queue.
type Queue struct {
	command []string
	runner  CommandRunner
	onError func(err error)
	onSpeak func(item Item)

	maxLength             int
	ellipsis              string
	projectSwitchTemplate string

	mu             sync.Mutex
	pending        []Item
	speaking       bool
	closed         bool
	currentProject string
	currentSession string
	currentCmd     *exec.Cmd
	seq            uint64
	workerDone     chan struct{}
}

// Config configures a new Queue.
type Config struct {
	// Command is the TTS binary argv prefix, e.g. []string{"say"}. The
	// spoken message is appended as the final argument.
	Command []string
	// Runner overrides process spawning for tests. Defaults to
	// exec.CommandContext.
	Runner CommandRunner
	// MaxLength truncates messages longer than this by replacing the
	// middle with Ellipsis. Zero means unlimited.
	MaxLength int
	// Ellipsis is the truncation separator. Defaults to "…".
	Ellipsis string
	// OnError reports spawn/exit failures. Never fatal.
	OnError func(err error)
	// OnSpeak is called immediately before each item (including
	// synthesized announcements) is handed to the TTS process.
	OnSpeak func(item Item)
	// ProjectSwitchAnnouncement formats the synthesized announcement
	// spoken when the queue switches which project it's narrating for.
	// Takes one %s verb for the project's display name. Defaults to
	// English ("%s is now playing"); the CLI layer overrides this with a
	// localized template built from the resolved narration language.
	ProjectSwitchAnnouncement string
}

// New creates a Queue. Does not start any background work — speech.Queue
// has no internal goroutine loop; Speak drives execution synchronously up
// to the point of spawning the child process, which runs concurrently and
// reports completion through the worker's own goroutine.
func New(cfg Config) *Queue {
	runner := cfg.Runner
	if runner == nil {
		runner = exec.CommandContext
	}
	onError := cfg.OnError
	if onError == nil {
		onError = func(error) {}
	}
	onSpeak := cfg.OnSpeak
	if onSpeak == nil {
		onSpeak = func(Item) {}
	}
	ellipsis := cfg.Ellipsis
	if ellipsis == "" {
		ellipsis = "…"
	}
	projectSwitchTemplate := cfg.ProjectSwitchAnnouncement
	if projectSwitchTemplate == "" {
		projectSwitchTemplate = "%s is now playing"
	}
	return &Queue{
		command:               cfg.Command,
		runner:                runner,
		onError:               onError,
		onSpeak:               onSpeak,
		maxLength:             cfg.MaxLength,
		ellipsis:              ellipsis,
		projectSwitchTemplate: projectSwitchTemplate,
	}
}

// Speak enqueues a message. Returns immediately; the message is spoken
// at-most-once. Returns ErrQueueClosed after StopGracefully or Dispose.
func (q *Queue) Speak(item Item) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	item.Message = q.truncate(item.Message)
	q.seq++
	item.seq = q.seq
	q.pending = append(q.pending, item)
	q.mu.Unlock()

	q.tryStartNext()
	return nil
}

// CancelByTag removes all queued items whose CancelTag equals tag. Does
// not stop the currently-speaking item.
func (q *Queue) CancelByTag(tag string) {
	if tag == "" {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.pending[:0]
	for _, item := range q.pending {
		if item.CancelTag != tag {
			kept = append(kept, item)
		}
	}
	q.pending = kept
}

// Pending returns the number of items waiting in the queue.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// IsSpeaking reports whether a TTS child process is currently running.
func (q *Queue) IsSpeaking() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.speaking
}

// StopGracefully clears the queue, rejects further Speak calls, and waits
// for any in-flight item to finish.
func (q *Queue) StopGracefully() {
	q.mu.Lock()
	q.closed = true
	q.pending = nil
	done := q.workerDone
	q.mu.Unlock()

	if done != nil {
		<-done
	}
}

// Dispose kills any in-flight item, clears the queue, and rejects further
// Speak calls. Safe to call multiple times.
func (q *Queue) Dispose() {
	q.mu.Lock()
	q.closed = true
	q.pending = nil
	if q.currentCmd != nil && q.currentCmd.Process != nil {
		_ = q.currentCmd.Process.Kill()
	}
	q.mu.Unlock()
}

// truncate applies §4.3's middle-elision truncation rule.
func (q *Queue) truncate(message string) string {
	if q.maxLength <= 0 || len(message) <= q.maxLength {
		return message
	}
	half := q.maxLength / 2
	return message[:half] + q.ellipsis + message[len(message)-half:]
}

// tryStartNext starts the worker if idle and the queue is non-empty.
func (q *Queue) tryStartNext() {
	q.mu.Lock()
	if q.speaking || q.closed {
		q.mu.Unlock()
		return
	}
	item, ok := q.dequeueNextLocked()
	if !ok {
		q.mu.Unlock()
		return
	}
	q.speaking = true
	done := make(chan struct{})
	q.workerDone = done
	q.mu.Unlock()

	go q.runItem(item, done)
}

// dequeueNextLocked selects the next item to speak, ranked by affinity to
// currentProject/currentSession, and synthesizes a project-switch
// announcement when needed. Must be called with q.mu held.
func (q *Queue) dequeueNextLocked() (Item, bool) {
	if len(q.pending) == 0 {
		return Item{}, false
	}

	idx := q.rankNextLocked()
	item := q.pending[idx]

	if item.announcement || item.switchAnnounced || item.ProjectEncoded == "" || q.currentProject == "" || item.ProjectEncoded == q.currentProject {
		q.pending = append(q.pending[:idx], q.pending[idx+1:]...)
		if !item.announcement && item.ProjectEncoded != "" {
			q.currentProject = item.ProjectEncoded
		}
		return item, true
	}

	// Project switch: re-insert the original item at the front, marked so
	// it is not announced a second time, and speak a synthesized
	// announcement first. currentProject updates only when the real item
	// is later selected, not here.
	q.pending = append(q.pending[:idx], q.pending[idx+1:]...)
	item.switchAnnounced = true
	q.pending = append([]Item{item}, q.pending...)

	announcement := Item{
		Message:      fmt.Sprintf(q.projectSwitchTemplate, item.ProjectDisplay),
		announcement: true,
	}
	return announcement, true
}

// rankNextLocked returns the index of the highest-priority pending item:
// (1) same project and session as the most recently spoken, (2) same
// project, (3) FIFO. An item whose project-switch announcement has just
// been spoken goes first.
func (q *Queue) rankNextLocked() int {
	if len(q.pending) > 0 && q.pending[0].switchAnnounced {
		return 0
	}
	for i, item := range q.pending {
		if item.ProjectEncoded == q.currentProject && item.Session == q.currentSession && item.Session != "" {
			return i
		}
	}
	for i, item := range q.pending {
		if item.ProjectEncoded == q.currentProject && q.currentProject != "" {
			return i
		}
	}
	return 0
}

// runItem spawns the TTS child process for item and, on completion, tries
// to dequeue the next one. Runs on its own goroutine so Speak never blocks.
func (q *Queue) runItem(item Item, done chan struct{}) {
	defer close(done)

	q.onSpeak(item)

	if !item.announcement {
		q.mu.Lock()
		q.currentSession = item.Session
		q.mu.Unlock()
	}

	if len(q.command) == 0 {
		q.onError(errors.New("speech: no TTS command configured"))
	} else {
		ctx := context.Background()
		args := append(append([]string{}, q.command[1:]...), item.Message)
		cmd := q.runner(ctx, q.command[0], args...)

		q.mu.Lock()
		q.currentCmd = cmd
		q.mu.Unlock()

		var stderr bytes.Buffer
		cmd.Stderr = &stderr

		err := cmd.Run()

		q.mu.Lock()
		q.currentCmd = nil
		q.mu.Unlock()

		if err != nil {
			q.onError(classifyExecError(err, stderr.String()))
		}
	}

	q.mu.Lock()
	q.speaking = false
	q.mu.Unlock()

	q.tryStartNext()
}

func classifyExecError(err error, stderr string) error {
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return fmt.Errorf("speech: TTS binary not found: %w", err)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("speech: TTS process exited %d: %s", exitErr.ExitCode(), strings.TrimSpace(stderr))
	}
	return fmt.Errorf("speech: running TTS process: %w", err)
}

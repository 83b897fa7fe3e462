package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/config"
	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/locale"
	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/logging"
	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/orchestrator"
	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/paths"
	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/speech"
	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/summarize"
	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/tailer"
	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/ttsdetect"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newMonitorCmd() *cobra.Command {
	var includes []string
	var excludes []string
	var configPath string

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Watch Claude Code transcripts and narrate activity aloud",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMonitor(cmd, configPath, includes, excludes)
		},
	}

	cmd.Flags().StringArrayVar(&includes, "include", nil, "Project path pattern to narrate (repeatable)")
	cmd.Flags().StringArrayVar(&excludes, "exclude", nil, "Project path pattern to silence (repeatable)")
	cmd.Flags().StringVar(&configPath, "config", "", "Path to the configuration file (default: $XDG_CONFIG_HOME/cc-voice-reporter/config.json)")

	return cmd
}

func runMonitor(cmd *cobra.Command, configPathFlag string, includes, excludes []string) error {
	cfg, err := loadMonitorConfig(configPathFlag)
	if err != nil {
		return err
	}
	cfg.Filter.Include = append(cfg.Filter.Include, includes...)
	cfg.Filter.Exclude = append(cfg.Filter.Exclude, excludes...)

	runID := strconv.FormatInt(time.Now().UnixNano(), 10) + "-" + strconv.Itoa(os.Getpid())
	logging.SetLogLevelGetter(cfg.ResolveLogLevel)
	if err := logging.Init(runID); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	defer logging.Close()

	projectsDir := cfg.ProjectsDir
	if projectsDir == "" {
		projectsDir, err = paths.DefaultProjectsDir()
		if err != nil {
			return fmt.Errorf("resolving projects dir: %w", err)
		}
	}
	hooksDir, err := paths.HooksStateDir()
	if err != nil {
		return fmt.Errorf("resolving hooks state dir: %w", err)
	}

	language := cfg.Language
	if language == "" {
		language = locale.Detect()
	}

	ttsCommand := cfg.Speaker.Command
	if len(ttsCommand) == 0 {
		detected, detectErr := ttsdetect.Detect(ttsdetect.DefaultCandidates)
		if detectErr != nil {
			return fmt.Errorf("no TTS binary found on PATH and none configured: %w", detectErr)
		}
		ttsCommand = []string{detected}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	phrases := locale.PhrasesFor(language)

	speechCtx := logging.WithComponent(ctx, "speech")
	speechQueue := speech.New(speech.Config{
		Command:                   ttsCommand,
		ProjectSwitchAnnouncement: phrases.ProjectPlaying,
		OnError:                   func(err error) { logging.Warn(speechCtx, "speech error", "error", err) },
	})
	defer speechQueue.Dispose()

	ollamaClient, err := resolveOllamaClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("resolving ollama model: %w", err)
	}

	summarizeCtx := logging.WithComponent(ctx, "summarize")
	summarizer := summarize.New(summarize.Config{
		Client:          ollamaClient,
		Speak:           adaptSpeaker(speechQueue),
		Language:        language,
		LanguageName:    locale.DisplayName(language),
		Interval:        summaryInterval(cfg),
		MaxPromptEvents: summarize.DefaultMaxPromptEvents,
		Timeout:         ollamaTimeout(cfg),
		OnError:         func(err error) { logging.Warn(summarizeCtx, "summarizer error", "error", err) },
		FailureMessage:  func(n int) string { return fmt.Sprintf(phrases.SummaryFailed, n) },
	})
	summarizer.Start()
	defer summarizer.Stop()

	// The summarizer's own narration is produced by the LLM in the resolved
	// language via buildSystemPrompt's language instruction; its
	// summary-failed fallback and the fixed notification phrases the
	// orchestrator speaks directly are localized from locale's own small
	// phrase table instead.
	orch := orchestrator.New(speechQueue, summarizer, cfg.Filter, buildMessages(phrases))

	tailerCtx := logging.WithComponent(ctx, "tailer")
	transcriptTailer := tailer.New(projectsDir, func(lines []string, path string) {
		fc := orchestrator.FileContextFor(path, projectsDir)
		orch.DispatchTranscriptLines(ctx, fc, lines)
	}, func(err error) { logging.Warn(tailerCtx, "transcript tailer error", "error", err) })

	hookTailer := tailer.New(hooksDir, func(lines []string, path string) {
		fc := orchestrator.FileContext{SessionID: sessionIDFromHookPath(path)}
		orch.DispatchHookLines(ctx, fc, lines)
	}, func(err error) { logging.Warn(tailerCtx, "hook tailer error", "error", err) })

	if err := transcriptTailer.Start(ctx); err != nil {
		return fmt.Errorf("starting transcript tailer: %w", err)
	}
	defer transcriptTailer.Close() //nolint:errcheck // best-effort on shutdown

	if err := hookTailer.Start(ctx); err != nil {
		return fmt.Errorf("starting hook tailer: %w", err)
	}
	defer hookTailer.Close() //nolint:errcheck // best-effort on shutdown

	printStartupBanner(cmd.OutOrStdout(), projectsDir, language)

	waitForShutdown(ctx, cancel, func() {
		logging.Info(context.Background(), "graceful shutdown: flushing pending summaries")
		flushCtx, flushCancel := context.WithTimeout(context.Background(), ollamaTimeout(cfg))
		summarizer.Flush(flushCtx)
		flushCancel()
		speechQueue.StopGracefully()
	}, speechQueue.Dispose)

	return nil
}

// resolveOllamaClient resolves the configured (or first installed) model
// against GET /api/tags before building the client the summarizer uses,
// per spec §6's startup-abort-if-none-installed rule.
func resolveOllamaClient(ctx context.Context, cfg config.Config) (*summarize.Client, error) {
	probe := summarize.NewClient(summarize.ClientConfig{
		BaseURL: cfg.Ollama.BaseURL,
		Timeout: ollamaTimeout(cfg),
	})

	resolveCtx, cancel := context.WithTimeout(ctx, ollamaTimeout(cfg))
	defer cancel()

	model, err := probe.ResolveModel(resolveCtx, cfg.Ollama.Model)
	if err != nil {
		return nil, err
	}

	return summarize.NewClient(summarize.ClientConfig{
		BaseURL: cfg.Ollama.BaseURL,
		Model:   model,
		Timeout: ollamaTimeout(cfg),
	}), nil
}

// waitForShutdown blocks until SIGINT, SIGTERM, or SIGQUIT, implementing
// the escalation in spec §5: the first SIGINT/SIGTERM runs graceful, a
// second identical signal (or any SIGQUIT) runs forced immediately.
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, graceful, forced func()) {
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sigs)

	// A parent cancellation (e.g. the process-wide interrupt handler in
	// main.go reacting to the same signal) is treated the same as
	// receiving SIGINT/SIGTERM directly here: run the graceful sequence.
	var sig os.Signal
	select {
	case sig = <-sigs:
	case <-ctx.Done():
	}
	cancel()

	if sig == syscall.SIGQUIT {
		forced()
		return
	}

	done := make(chan struct{})
	go func() {
		graceful()
		close(done)
	}()
	select {
	case <-done:
	case <-sigs:
		forced()
	}
}

// printStartupBanner announces the watched directory and narration
// language. It only emits ANSI color codes when stdout is an actual
// terminal, matching the teacher's convention of never coloring output
// that might be piped into a log file or another process.
func printStartupBanner(w io.Writer, projectsDir, language string) {
	const (
		bold  = "\033[1m"
		reset = "\033[0m"
	)

	label := "cc-voice-reporter"
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		label = bold + label + reset
	}

	fmt.Fprintf(w, "%s monitoring %s (language: %s)\n", label, projectsDir, language)
}

// buildMessages translates locale's phrase table into the func-shaped
// orchestrator.Messages the orchestrator speaks directly (the question
// text and event count are only known at dispatch time, hence the
// closures around a fixed phrase).
func buildMessages(p locale.Phrases) orchestrator.Messages {
	return orchestrator.Messages{
		AskQuestion:      func(q string) string { return fmt.Sprintf("%s. %s", q, p.AwaitingConfirmation) },
		PermissionNeeded: p.PermissionNeeded,
		AwaitingInput:    p.AwaitingInput,
		SummaryFailed:    func(n int) string { return fmt.Sprintf(p.SummaryFailed, n) },
	}
}

func loadMonitorConfig(configPathFlag string) (config.Config, error) {
	path := configPathFlag
	if path == "" {
		var err error
		path, err = paths.ConfigFilePath()
		if err != nil {
			return config.Config{}, fmt.Errorf("resolving config path: %w", err)
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func summaryInterval(cfg config.Config) time.Duration {
	if cfg.Summary.IntervalMs <= 0 {
		return summarize.DefaultInterval
	}
	return time.Duration(cfg.Summary.IntervalMs) * time.Millisecond
}

func ollamaTimeout(cfg config.Config) time.Duration {
	if cfg.Ollama.TimeoutMs <= 0 {
		return summarize.DefaultTimeout
	}
	return time.Duration(cfg.Ollama.TimeoutMs) * time.Millisecond
}

// adaptSpeaker turns a speech.Queue into the func(SpeakItem) error shape
// summarize.Config wants, keeping summarize decoupled from speech.
func adaptSpeaker(q *speech.Queue) func(summarize.SpeakItem) error {
	return func(item summarize.SpeakItem) error {
		return q.Speak(speech.Item{
			Message:        item.Message,
			ProjectEncoded: item.ProjectEncoded,
			ProjectDisplay: item.ProjectDisplay,
			Session:        item.Session,
		})
	}
}

// sessionIDFromHookPath extracts "{sessionId}" from a hooks directory file
// named "{sessionId}.jsonl".
func sessionIDFromHookPath(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

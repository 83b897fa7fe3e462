package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/config"
	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/paths"
	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/summarize"
	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/ttsdetect"
	"github.com/spf13/cobra"
)

var errDoctorFailed = errors.New("one or more checks failed")

// newDoctorCmd reports whether monitor's three startup preconditions are
// met: a usable TTS binary, a reachable Ollama endpoint with a resolvable
// model, and a projects directory that actually exists.
func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that monitor's prerequisites are satisfied",
		Long: `Checks the three things monitor needs before it can start narrating:

  - A TTS binary, either configured or autodetected on PATH
  - An Ollama endpoint reachable at the configured base URL, with a model
    installed (or a configured model name it can resolve)
  - A Claude Code projects directory to tail

Exits non-zero if any check fails.`,
		RunE: runDoctor,
	}
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	ctx := cmd.Context()

	path, err := paths.ConfigFilePath()
	if err != nil {
		fmt.Fprintf(w, "[FAIL] config path: %v\n", err)
		return errDoctorFailed
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(w, "[WARN] no usable config at %s (%v); checking against defaults\n", path, err)
		cfg = config.Config{}
	}

	ok := checkTTS(w, cfg)
	ok = checkOllama(ctx, w, cfg) && ok
	ok = checkProjectsDir(w, cfg) && ok

	if !ok {
		return errDoctorFailed
	}
	fmt.Fprintln(w, "All checks passed.")
	return nil
}

func checkTTS(w io.Writer, cfg config.Config) bool {
	if len(cfg.Speaker.Command) > 0 {
		fmt.Fprintf(w, "[ OK ] TTS: configured command %v\n", cfg.Speaker.Command)
		return true
	}
	detected, err := ttsdetect.Detect(ttsdetect.DefaultCandidates)
	if err != nil {
		fmt.Fprintf(w, "[FAIL] TTS: no configured command and none found on PATH (tried %v)\n", ttsdetect.DefaultCandidates)
		return false
	}
	fmt.Fprintf(w, "[ OK ] TTS: autodetected %q on PATH\n", detected)
	return true
}

func checkOllama(ctx context.Context, w io.Writer, cfg config.Config) bool {
	baseURL := cfg.Ollama.BaseURL
	if baseURL == "" {
		baseURL = summarize.DefaultBaseURL
	}
	client := summarize.NewClient(summarize.ClientConfig{
		BaseURL: baseURL,
		Timeout: summarize.DefaultTimeout,
	})

	model, err := client.ResolveModel(ctx, cfg.Ollama.Model)
	if err != nil {
		fmt.Fprintf(w, "[FAIL] ollama: %s unreachable or no model installed: %v\n", baseURL, err)
		return false
	}
	fmt.Fprintf(w, "[ OK ] ollama: %s reachable, using model %q\n", baseURL, model)
	return true
}

func checkProjectsDir(w io.Writer, cfg config.Config) bool {
	dir := cfg.ProjectsDir
	if dir == "" {
		var err error
		dir, err = paths.DefaultProjectsDir()
		if err != nil {
			fmt.Fprintf(w, "[FAIL] projects dir: %v\n", err)
			return false
		}
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		fmt.Fprintf(w, "[FAIL] projects dir: %s does not exist\n", dir)
		return false
	}
	fmt.Fprintf(w, "[ OK ] projects dir: %s\n", dir)
	return true
}

package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/config"
	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/jsonutil"
	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/locale"
	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/paths"
	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/ttsdetect"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the cc-voice-reporter configuration file",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool
	var nonInteractive bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := paths.ConfigFilePath()
			if err != nil {
				return fmt.Errorf("resolving config path: %w", err)
			}

			if !force {
				if _, statErr := os.Stat(path); statErr == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Configuration already exists at %s. Use --force to overwrite.\n", path)
					return NewSilentError(errors.New("config file already exists"))
				}
			}

			cfg := config.Config{Language: locale.Detect()}

			// A piped stdin (redirected from a file, or no controlling
			// terminal at all) can't drive huh's interactive wizard;
			// fall back to non-interactive rather than hang forever.
			interactive := !nonInteractive && term.IsTerminal(int(os.Stdin.Fd()))
			if interactive {
				if err := promptConfigInit(&cfg); err != nil {
					return fmt.Errorf("config init: %w", err)
				}
			}

			if err := writeConfig(path, cfg); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote configuration to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing configuration file")
	cmd.Flags().BoolVar(&nonInteractive, "non-interactive", false, "Skip the interactive wizard and write documented defaults")

	return cmd
}

// promptConfigInit asks the user for the handful of settings worth
// confirming up front; everything else is left at its documented default
// (zero value) for the daemon to resolve at startup.
func promptConfigInit(cfg *config.Config) error {
	ttsCommand, detectErr := ttsdetect.Detect(ttsdetect.DefaultCandidates)

	var languageName string
	if cfg.Language != "" {
		languageName = locale.DisplayName(cfg.Language)
	} else {
		languageName = "English"
	}

	fields := []huh.Field{
		huh.NewInput().
			Title("Narration language (BCP-47 code)").
			Description(fmt.Sprintf("Detected: %s (%s)", cfg.Language, languageName)).
			Placeholder(cfg.Language).
			Value(&cfg.Language),
	}

	var useDetected bool
	if detectErr == nil {
		useDetected = true
		fields = append(fields, huh.NewConfirm().
			Title(fmt.Sprintf("Use detected TTS binary %q?", ttsCommand)).
			Affirmative("Yes").
			Negative("I'll configure one manually").
			Value(&useDetected))
	}

	form := NewAccessibleForm(huh.NewGroup(fields...))
	if err := form.Run(); err != nil {
		//nolint:nilerr // user cancelled the wizard, fall back to defaults silently
		return nil
	}

	if detectErr == nil && useDetected {
		cfg.Speaker.Command = []string{ttsCommand}
	}

	return nil
}

func writeConfig(path string, cfg config.Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := jsonutil.MarshalIndentWithNewline(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	//nolint:gosec // config is not secret, 0644 is appropriate
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := paths.ConfigFilePath()
			if err != nil {
				return fmt.Errorf("resolving config path: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

package cli

import (
	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/telemetry"
	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/versioncheck"
	"github.com/spf13/cobra"
)

const gettingStarted = `

Getting Started:
  Run 'cc-voice-reporter config init' to create a configuration file, then
  'cc-voice-reporter monitor' to start narrating Claude Code's activity.
`

const accessibilityHelp = `
Environment Variables:
  ACCESSIBLE    Set to any value (e.g., ACCESSIBLE=1) to enable accessibility
                mode. This uses simpler text prompts instead of interactive
                TUI elements, which works better with screen readers.
`

// Version information (can be set at build time)
var (
	Version = "dev"
	Commit  = "unknown"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cc-voice-reporter",
		Short: "Spoken narration of Claude Code activity",
		Long:  "Tails Claude Code transcripts and narrates activity aloud." + gettingStarted + accessibilityHelp,
		// Let main.go handle error printing to avoid duplication
		SilenceErrors: true,
		// Hide completion command from help but keep it functional
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			versioncheck.CheckAndNotify(cmd, Version)
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			telemetry.TrackCommandDetached(cmd, nil, Version)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	// Add subcommands here
	cmd.AddCommand(newMonitorCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newTrackingCmd())
	cmd.AddCommand(newHookReceiverCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newSendAnalyticsCmd())

	// Replace default help command with custom one that supports -t flag
	cmd.SetHelpCommand(NewHelpCmd(cmd))

	return cmd
}

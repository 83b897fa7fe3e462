package cli

import (
	"io"

	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/telemetry"
	"github.com/spf13/cobra"
)

// newSendAnalyticsCmd registers the hidden subcommand TrackCommandDetached
// re-execs the binary into. It reads the event payload from stdin and
// posts it to PostHog, then exits. Never invoked directly by a user.
func newSendAnalyticsCmd() *cobra.Command {
	return &cobra.Command{
		Use:    telemetry.DetachedSendCommand,
		Hidden: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			payload, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return nil //nolint:nilerr // best-effort, never surface an error from the detached sender
			}
			telemetry.SendEvent(string(payload))
			return nil
		},
	}
}

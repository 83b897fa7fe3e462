package cli

import (
	"fmt"

	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/hooks"
	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/paths"
	"github.com/spf13/cobra"
)

// newHookReceiverCmd builds the short-lived side-channel command the AI
// assistant's hook mechanism invokes directly: it reads one JSON object
// from stdin and appends it to that session's hook file, then exits. Kept
// deliberately free of any daemon machinery so it returns as fast as
// possible from the assistant's perspective.
func newHookReceiverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hook-receiver",
		Short: "Record a hook event from the AI assistant (invoked by the hook mechanism)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := paths.HooksStateDir()
			if err != nil {
				return fmt.Errorf("resolving hooks state dir: %w", err)
			}
			if err := hooks.Receive(cmd.InOrStdin(), dir); err != nil {
				return fmt.Errorf("hook-receiver: %w", err)
			}
			return nil
		},
	}
}

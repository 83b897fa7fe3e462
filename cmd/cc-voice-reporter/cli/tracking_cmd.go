package cli

import (
	"fmt"

	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/config"
	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/paths"
	"github.com/spf13/cobra"
)

func newTrackingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tracking",
		Short: "Manage which project paths are narrated",
		Long: `Manage the filter.include list in the configuration file.

Tracked paths are matched against a project's resolved display name per
the exact/suffix/substring rule documented in 'config path'. An empty
tracking list means every project is narrated.`,
	}

	cmd.AddCommand(newTrackingAddCmd())
	cmd.AddCommand(newTrackingRemoveCmd())
	cmd.AddCommand(newTrackingListCmd())

	return cmd
}

func newTrackingAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <path>",
		Short: "Add a project path pattern to the tracking list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateTrackingList(cmd, func(include []string) []string {
				for _, existing := range include {
					if existing == args[0] {
						return include
					}
				}
				return append(include, args[0])
			})
		},
	}
}

func newTrackingRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <path>",
		Short: "Remove a project path pattern from the tracking list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateTrackingList(cmd, func(include []string) []string {
				filtered := make([]string, 0, len(include))
				for _, existing := range include {
					if existing != args[0] {
						filtered = append(filtered, existing)
					}
				}
				return filtered
			})
		},
	}
}

func newTrackingListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tracked project path patterns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := paths.ConfigFilePath()
			if err != nil {
				return fmt.Errorf("resolving config path: %w", err)
			}
			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if len(cfg.Filter.Include) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "(none — every project is narrated)")
				return nil
			}
			for _, pattern := range cfg.Filter.Include {
				fmt.Fprintln(cmd.OutOrStdout(), pattern)
			}
			return nil
		},
	}
}

// mutateTrackingList loads the config, applies edit to filter.include, and
// persists the result.
func mutateTrackingList(cmd *cobra.Command, edit func(include []string) []string) error {
	path, err := paths.ConfigFilePath()
	if err != nil {
		return fmt.Errorf("resolving config path: %w", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg.Filter.Include = edit(cfg.Filter.Include)

	if err := writeConfig(path, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Updated tracking list.")
	return nil
}

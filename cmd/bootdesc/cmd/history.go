package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/bootdesc/pkg/di"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List and restore region snapshots",
	Long: `Every switch, provision and restore first saves the previous region to
the snapshot history. These commands list the snapshots, write one back
to flash and remove old ones.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		format, _ := cmd.Flags().GetString("format")
		if err := checkFormat(format); err != nil {
			return err
		}

		return withContainer(cmd, func(c *di.Container) error {
			snaps, err := c.Updater().History(limit)
			if err != nil {
				return err
			}
			return outputSnapshots(cmd.OutOrStdout(), snaps, format)
		})
	},
}

var historyRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Write a snapshot back to flash",
	Long: `Write a snapshot back to flash. The snapshot must hold a valid region;
the region it replaces is itself saved first.

Example:
  bootdesc history restore 2ZxS1AWtrlRaDtxPvPqVHtcY9eG`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd, func(c *di.Container) error {
			d, err := c.Updater().Restore(args[0])
			if err != nil {
				return fmt.Errorf("failed to restore snapshot %s: %w", args[0], err)
			}
			cmd.Printf("✅ Restored snapshot %s, active slot %d\n", args[0], d.Header().ActiveAppSlot)
			return nil
		})
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a snapshot from the history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd, func(c *di.Container) error {
			if err := c.Updater().DeleteSnapshot(args[0]); err != nil {
				return fmt.Errorf("failed to delete snapshot %s: %w", args[0], err)
			}
			cmd.Printf("Deleted snapshot %s\n", args[0])
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyRestoreCmd)
	historyCmd.AddCommand(historyDeleteCmd)

	historyListCmd.Flags().IntP("limit", "n", 20, "Maximum number of snapshots, 0 for all")
	historyListCmd.Flags().StringP("format", "f", formatTable, "Output format: table or json")
}

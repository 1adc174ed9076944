/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ssargent/bootdesc/pkg/di"
)

// switchCmd represents the switch command
var switchCmd = &cobra.Command{
	Use:   "switch <slot>",
	Short: "Mark an app slot active",
	Long: `Mark an app slot active so the boot loader runs it on the next boot.

The current region is saved to the snapshot history before flash is
written, and the written region is read back and validated.

Example:
  bootdesc switch 1`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		slot, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid slot %q: %w", args[0], err)
		}

		return withContainer(cmd, func(c *di.Container) error {
			d, err := c.Updater().SwitchSlot(uint32(slot))
			if err != nil {
				return fmt.Errorf("failed to switch to slot %d: %w", slot, err)
			}
			active, err := d.ActiveDescriptor()
			if err != nil {
				return err
			}
			cmd.Printf("✅ Active slot is now %d (app version %d, security version %d)\n",
				d.Header().ActiveAppSlot, active.AppVersion, active.SecurityVersion)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(switchCmd)
}

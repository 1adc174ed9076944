package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/bootdesc/pkg/di"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show the region header and every app descriptor",
	Long: `Load and validate the bootable region, then print its header and all
app descriptors. The active slot is marked with '*'.

Examples:
  bootdesc inspect
  bootdesc inspect --format json --image ./flash.bin`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if err := checkFormat(format); err != nil {
			return err
		}

		return withContainer(cmd, func(c *di.Container) error {
			d, err := c.Updater().Inspect()
			if err != nil {
				return fmt.Errorf("region is invalid: %w", err)
			}
			return outputRegion(cmd.OutOrStdout(), d, format)
		})
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringP("format", "f", formatTable, "Output format: table or json")
}

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/bootdesc/pkg/di"
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that the region is valid",
	Long: `Run every check a boot loader runs on the region: signature, size
fields, descriptor version, header CRC, slot count, active slot and each
descriptor's version, CRC and slot number. Exits non-zero on the first
failure.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd, func(c *di.Container) error {
			if err := c.Updater().Verify(); err != nil {
				return err
			}
			cmd.Printf("✅ Region is valid\n")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

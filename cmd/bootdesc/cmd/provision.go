package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/bootdesc/pkg/config"
	"github.com/ssargent/bootdesc/pkg/di"
	"github.com/ssargent/bootdesc/pkg/manifest"
	"github.com/ssargent/bootdesc/pkg/region"
)

// provisionCmd represents the provision command
var provisionCmd = &cobra.Command{
	Use:   "provision <manifest.yaml>",
	Short: "Write a fresh region described by a manifest",
	Long: `Build a sealed bootable region from a YAML manifest and write it over
the configured region. Numeric manifest fields accept hex (0x...).

With --dry-run the region is built and printed but nothing is written.

Examples:
  bootdesc provision ./region.yaml
  bootdesc provision ./region.yaml --dry-run --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		format, _ := cmd.Flags().GetString("format")
		if err := checkFormat(format); err != nil {
			return err
		}

		m, err := manifest.LoadFile(args[0])
		if err != nil {
			return err
		}

		if dryRun {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			opts, err := cfg.RegionOptions()
			if err != nil {
				return err
			}
			d, err := m.Build(append(opts, dryRunLimit(cfg))...)
			if err != nil {
				return fmt.Errorf("invalid manifest: %w", err)
			}
			return outputRegion(cmd.OutOrStdout(), d, format)
		}

		return withContainer(cmd, func(c *di.Container) error {
			d, err := c.Updater().Provision(m)
			if err != nil {
				return fmt.Errorf("failed to provision region: %w", err)
			}
			cmd.Printf("✅ Provisioned %d slots, active slot %d\n", d.Len(), d.Header().ActiveAppSlot)
			return nil
		})
	},
}

// dryRunLimit caps a dry-run build at the configured region size, or at
// what the image holds past the offset when the size is zero.
func dryRunLimit(cfg *config.Config) region.Option {
	if cfg.Region.Size > 0 {
		return region.WithMaxSize(int(cfg.Region.Size))
	}
	if info, err := os.Stat(cfg.Region.Image); err == nil && info.Size() > cfg.Region.Offset {
		return region.WithMaxSize(int(info.Size() - cfg.Region.Offset))
	}
	return region.WithMaxSize(region.DefaultMaxSize)
}

func init() {
	rootCmd.AddCommand(provisionCmd)
	provisionCmd.Flags().Bool("dry-run", false, "Build and print the region without writing it")
	provisionCmd.Flags().StringP("format", "f", formatTable, "Dry run output format: table or json")
}

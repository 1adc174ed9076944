/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/bootdesc/pkg/config"
	"github.com/ssargent/bootdesc/pkg/flash"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long: `Write a default configuration with a generated API key.

This command will:
- Create the config directory
- Write the config file with secure permissions
- Optionally create an erased flash image for local experiments

Examples:
  bootdesc init
  bootdesc init --config ./bootdesc.yaml --image ./flash.bin --image-size 65536`,
	Args:              cobra.NoArgs,
	PersistentPreRunE: skipConfig,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		image, _ := cmd.Flags().GetString("image")
		imageSize, _ := cmd.Flags().GetInt64("image-size")
		force, _ := cmd.Flags().GetBool("force")

		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}

		if config.ConfigExists(configPath) && !force {
			cmd.Printf("Config already exists at %s. Use --force to overwrite.\n", configPath)
			return nil
		}

		cfg, err := config.BootstrapConfig(configPath, image)
		if err != nil {
			return err
		}
		cmd.Printf("✅ Wrote config to %s\n", configPath)
		cmd.Printf("API key: %s\n", cfg.Security.APIKey)

		if imageSize > 0 {
			if _, err := os.Stat(cfg.Region.Image); err == nil {
				cmd.Printf("Flash image %s already exists, leaving it untouched\n", cfg.Region.Image)
				return nil
			}
			img, err := flash.Create(cfg.Region.Image, imageSize)
			if err != nil {
				return fmt.Errorf("failed to create flash image: %w", err)
			}
			if err := img.Close(); err != nil {
				return err
			}
			cmd.Printf("✅ Created erased flash image %s (%d bytes)\n", cfg.Region.Image, imageSize)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Int64("image-size", 0, "Create an erased flash image of this many bytes if none exists")
	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
}

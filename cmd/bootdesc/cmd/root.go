/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/bootdesc/pkg/api"
	"github.com/ssargent/bootdesc/pkg/config"
	"github.com/ssargent/bootdesc/pkg/di"
)

type contextKey string

const configKey contextKey = "config"

var serverFactory api.ServerFactory

// SetServerFactory sets the factory used by serve
func SetServerFactory(f api.ServerFactory) {
	serverFactory = f
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bootdesc",
	Short: "bootdesc - bootable region descriptor tool",
	Long: `bootdesc reads, validates and updates the bootable region descriptors a
boot loader consults to pick which firmware slot to run.

The region lives inside a flash image file. Its location and address
convention come from the config file (see 'bootdesc init') and may be
overridden with --image, --offset and --size.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		// Store in command context
		cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default ~/.config/bootdesc/config.yaml)")
	rootCmd.PersistentFlags().String("image", "", "Flash image file (overrides region.image)")
	rootCmd.PersistentFlags().Int64("offset", 0, "Byte offset of the region header (overrides region.offset)")
	rootCmd.PersistentFlags().Int64("size", 0, "Region size in bytes, 0 for the rest of the image (overrides region.size)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (overrides logging.level)")
}

// loadConfig reads the config named by --config, falling back to the
// default path and then to built-in defaults, and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	explicit := configPath != ""
	if !explicit {
		configPath = config.GetDefaultConfigPath()
	}

	var cfg *config.Config
	switch {
	case config.ConfigExists(configPath):
		var err error
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
	case explicit:
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	default:
		cfg = config.DefaultConfig()
	}

	flags := cmd.Flags()
	if flags.Changed("image") {
		cfg.Region.Image, _ = flags.GetString("image")
	}
	if flags.Changed("offset") {
		cfg.Region.Offset, _ = flags.GetInt64("offset")
	}
	if flags.Changed("size") {
		cfg.Region.Size, _ = flags.GetInt64("size")
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	return cfg, nil
}

// configFrom returns the config loaded by the root command
func configFrom(cmd *cobra.Command) (*config.Config, error) {
	cfg, ok := cmd.Context().Value(configKey).(*config.Config)
	if !ok {
		return nil, fmt.Errorf("config not found in context")
	}
	return cfg, nil
}

// withContainer builds the dependency container for the config stored in
// cmd's context, runs fn and closes the container.
func withContainer(cmd *cobra.Command, fn func(c *di.Container) error) error {
	cfg, err := configFrom(cmd)
	if err != nil {
		return err
	}

	c, err := di.NewContainer(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer c.Close()

	if serverFactory != nil {
		c.SetServerFactory(serverFactory)
	}
	return fn(c)
}

// skipConfig replaces the root PersistentPreRunE for commands that do not
// touch the region.
func skipConfig(*cobra.Command, []string) error {
	return nil
}

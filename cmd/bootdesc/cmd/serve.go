/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ssargent/bootdesc/pkg/config"
	"github.com/ssargent/bootdesc/pkg/di"
)

const autoAPIKey = "auto"

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the bootdesc REST API server. All /api/v1 routes require the
X-API-Key header; /metrics and /swagger/ are open.

When the configured API key is "auto" a random key is generated for this
run and printed.

Examples:
  bootdesc serve
  bootdesc serve --port 9400 --bind 0.0.0.0 --api-key mysecretkey`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd, func(c *di.Container) error {
			serverConfig := c.ServerConfig()
			if cmd.Flags().Changed("port") {
				serverConfig.Port, _ = cmd.Flags().GetInt("port")
			}
			if cmd.Flags().Changed("bind") {
				serverConfig.Bind, _ = cmd.Flags().GetString("bind")
			}
			if cmd.Flags().Changed("api-key") {
				serverConfig.APIKey, _ = cmd.Flags().GetString("api-key")
			}

			if serverConfig.APIKey == "" || serverConfig.APIKey == autoAPIKey {
				key, err := config.GenerateSecureKey(32)
				if err != nil {
					return err
				}
				serverConfig.APIKey = key
				cmd.Printf("Generated API key for this run: %s\n", key)
			}

			if err := c.Updater().Verify(); err != nil {
				c.Logger().Warn("serving an invalid region", "error", err)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			g, gctx := errgroup.WithContext(ctx)

			g.Go(func() error {
				defer cancel()
				starter := c.GetServerFactory().CreateServerStarter()
				if err := starter.StartServer(gctx, c.Updater(), serverConfig, c.Metrics()); err != nil {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			})

			g.Go(func() error {
				sigCh := make(chan os.Signal, 1)
				signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
				defer signal.Stop(sigCh)

				select {
				case sig := <-sigCh:
					c.Logger().Info("received signal, shutting down", "signal", sig.String())
					cancel()
				case <-gctx.Done():
				}
				return nil
			})

			return g.Wait()
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 9300, "Port to listen on (overrides server.port)")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind to (overrides server.bind)")
	serveCmd.Flags().String("api-key", "", "API key for authentication (overrides security.api_key)")
}

/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ssargent/bootdesc/pkg/config"
)

const serviceName = "bootdesc.service"

const unitPath = "/etc/systemd/system/" + serviceName

// serviceCmd represents the service command
var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage the bootdesc API server as a systemd service",
	Long: `Manage 'bootdesc serve' as a systemd service. This command provides
native integration with systemd for devices and test rigs that expose the
region over HTTP.

The service will be installed with proper security settings and
automatic restart on failure.`,
	PersistentPreRunE: skipConfig,
}

// installServiceCmd represents the service install command
var installServiceCmd = &cobra.Command{
	Use:   "install",
	Short: "Install bootdesc serve as a systemd service",
	Long: `Install 'bootdesc serve' as a systemd service.

This will:
- Create or use existing configuration
- Generate systemd unit file
- Enable and optionally start the service

Examples:
  sudo bootdesc service install
  sudo bootdesc service install --config /etc/bootdesc/config.yaml --user bootdesc`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		image, _ := cmd.Flags().GetString("image")
		user, _ := cmd.Flags().GetString("user")
		startNow, _ := cmd.Flags().GetBool("start")

		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}

		// Check if running as root (required for systemd operations)
		if os.Geteuid() != 0 {
			return fmt.Errorf("service install requires root privileges, run with: sudo bootdesc service install")
		}

		cmd.Printf("🔧 Installing bootdesc systemd service...\n")

		var cfg *config.Config
		var err error
		if config.ConfigExists(configPath) {
			cfg, err = config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("error loading config: %w", err)
			}
			cmd.Printf("✅ Loaded existing configuration\n")
		} else {
			cfg, err = config.BootstrapConfig(configPath, image)
			if err != nil {
				return fmt.Errorf("error bootstrapping config: %w", err)
			}
			cmd.Printf("✅ Created new configuration at %s\n", configPath)
		}

		binary, err := os.Executable()
		if err != nil {
			return fmt.Errorf("cannot locate bootdesc binary: %w", err)
		}

		unit := renderSystemdUnit(cfg, configPath, user, binary)
		if err := os.WriteFile(unitPath, []byte(unit), 0600); err != nil {
			return fmt.Errorf("error creating systemd unit: %w", err)
		}

		if err := runSystemctlCommand("daemon-reload"); err != nil {
			return fmt.Errorf("error reloading systemd: %w", err)
		}
		if err := runSystemctlCommand("enable", serviceName); err != nil {
			return fmt.Errorf("error enabling service: %w", err)
		}
		cmd.Printf("✅ Service enabled successfully\n")

		if startNow {
			if err := runSystemctlCommand("start", serviceName); err != nil {
				return fmt.Errorf("error starting service: %w", err)
			}
			cmd.Printf("✅ Service started successfully\n")
		}

		cmd.Printf("\n🎉 bootdesc service installed!\n")
		cmd.Printf("Service: %s\n", serviceName)
		cmd.Printf("Config: %s\n", configPath)
		cmd.Printf("Image: %s\n", cfg.Region.Image)
		cmd.Printf("Listen: %s:%d\n", cfg.Server.Bind, cfg.Server.Port)

		if !startNow {
			cmd.Printf("\nTo start the service: sudo systemctl start %s\n", serviceName)
		}
		cmd.Printf("To check status: sudo systemctl status %s\n", serviceName)
		cmd.Printf("To view logs: sudo journalctl -u %s -f\n", serviceName)
		return nil
	},
}

func systemctlCmd(use, short, done string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runSystemctlCommand(use, serviceName); err != nil {
				return fmt.Errorf("systemctl %s failed: %w", use, err)
			}
			if done != "" {
				cmd.Printf("✅ %s\n", done)
			}
			return nil
		},
	}
}

// logsCmd represents the service logs command
var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show bootdesc service logs",
	Long: `Show bootdesc service logs using journalctl.

Examples:
  bootdesc service logs
  bootdesc service logs -f  # Follow logs`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		follow, _ := cmd.Flags().GetBool("follow")
		lines, _ := cmd.Flags().GetInt("lines")
		return runCommand("journalctl", journalArgs(follow, lines)...)
	},
}

// uninstallCmd represents the service uninstall command
var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the bootdesc service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if os.Geteuid() != 0 {
			return fmt.Errorf("service uninstall requires root privileges, run with: sudo bootdesc service uninstall")
		}

		cmd.Printf("🗑️  Uninstalling bootdesc service...\n")

		_ = runSystemctlCommand("stop", serviceName) // Ignore errors if already stopped

		if err := runSystemctlCommand("disable", serviceName); err != nil {
			cmd.Printf("Warning: could not disable service: %v\n", err)
		}

		if _, err := os.Stat(unitPath); err == nil {
			if err := os.Remove(unitPath); err != nil {
				return fmt.Errorf("error removing unit file: %w", err)
			}
		}

		if err := runSystemctlCommand("daemon-reload"); err != nil {
			return fmt.Errorf("error reloading systemd: %w", err)
		}

		cmd.Printf("✅ bootdesc service uninstalled\n")
		cmd.Printf("Note: configuration, flash image and snapshot history were not removed\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serviceCmd)

	serviceCmd.AddCommand(installServiceCmd)
	serviceCmd.AddCommand(systemctlCmd("start", "Start the bootdesc service", "bootdesc service started"))
	serviceCmd.AddCommand(systemctlCmd("stop", "Stop the bootdesc service", "bootdesc service stopped"))
	serviceCmd.AddCommand(systemctlCmd("restart", "Restart the bootdesc service", "bootdesc service restarted"))
	serviceCmd.AddCommand(systemctlCmd("status", "Show bootdesc service status", ""))
	serviceCmd.AddCommand(logsCmd)
	serviceCmd.AddCommand(uninstallCmd)

	installServiceCmd.Flags().String("user", "bootdesc", "User to run the service as")
	installServiceCmd.Flags().Bool("start", true, "Start the service after installation")

	logsCmd.Flags().BoolP("follow", "f", false, "Follow log output")
	logsCmd.Flags().IntP("lines", "n", 0, "Number of lines to show")
}

// writablePaths lists the directories the service writes to
func writablePaths(cfg *config.Config, configPath string) []string {
	seen := map[string]bool{}
	add := func(p string) {
		if p == "" {
			return
		}
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		seen[p] = true
	}

	add(filepath.Dir(configPath))
	add(filepath.Dir(cfg.Region.Image))
	if cfg.History.Enabled {
		add(cfg.History.Dir)
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// renderSystemdUnit builds the unit file that runs binary serve
func renderSystemdUnit(cfg *config.Config, configPath, user, binary string) string {
	var rw strings.Builder
	for _, p := range writablePaths(cfg, configPath) {
		fmt.Fprintf(&rw, "ReadWritePaths=%s\n", p)
	}

	return fmt.Sprintf(`[Unit]
Description=bootdesc region API
After=network-online.target
Wants=network-online.target

[Service]
User=%s
Group=%s
ExecStart=%s serve --config %s
Restart=on-failure
NoNewPrivileges=true
UMask=0077
%s
[Install]
WantedBy=multi-user.target
`, user, user, binary, configPath, rw.String())
}

func journalArgs(follow bool, lines int) []string {
	args := []string{"-u", serviceName}
	if follow {
		args = append(args, "-f")
	}
	if lines > 0 {
		args = append(args, fmt.Sprintf("-n%d", lines))
	}
	return args
}

// runSystemctlCommand runs a systemctl command
func runSystemctlCommand(args ...string) error {
	return runCommand("systemctl", args...)
}

// runCommand runs a system command and returns its error
func runCommand(command string, args ...string) error {
	cmd := exec.Command(command, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

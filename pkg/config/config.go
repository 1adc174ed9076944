/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ssargent/bootdesc/pkg/region"
)

// Config represents the bootdesc configuration
type Config struct {
	Region   Region   `yaml:"region"`
	Server   Server   `yaml:"server"`
	History  History  `yaml:"history"`
	Security Security `yaml:"security"`
	Logging  Logging  `yaml:"logging"`
}

// Region locates the bootable region inside a flash image and selects how
// its descriptor array address is interpreted
type Region struct {
	// Image is the path of the flash dump holding the region
	Image string `yaml:"image"`

	// Offset is the byte offset of the region header inside Image
	Offset int64 `yaml:"offset"`

	// Size is the number of bytes read starting at Offset. Zero reads to
	// the end of the image.
	Size int64 `yaml:"size"`

	// AddressMode is "absolute" or "relative"
	AddressMode string `yaml:"address_mode"`

	// RegionBase is the absolute address of the region header, used in
	// absolute mode
	RegionBase uint32 `yaml:"region_base"`

	StrictSlotIdentity bool `yaml:"strict_slot_identity"`
}

// Server contains HTTP API configuration
type Server struct {
	Port int    `yaml:"port"`
	Bind string `yaml:"bind"`
}

// History contains snapshot store configuration
type History struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// Security contains security-related configuration
type Security struct {
	APIKey string `yaml:"api_key"`
}

// Logging contains logging configuration
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Region: Region{
			Image:              "./flash.bin",
			Offset:             0,
			Size:               4096,
			AddressMode:        region.Absolute.String(),
			RegionBase:         0,
			StrictSlotIdentity: true,
		},
		Server: Server{
			Port: 9300,
			Bind: "127.0.0.1",
		},
		History: History{
			Enabled: true,
			Dir:     "./history",
		},
		Security: Security{
			APIKey: "auto",
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks the configuration for values no component can accept
func (c *Config) Validate() error {
	if c.Region.Image == "" {
		return fmt.Errorf("region.image is required")
	}
	if c.Region.Offset < 0 {
		return fmt.Errorf("region.offset must not be negative: %d", c.Region.Offset)
	}
	if c.Region.Size < 0 {
		return fmt.Errorf("region.size must not be negative: %d", c.Region.Size)
	}
	if _, err := ParseAddressMode(c.Region.AddressMode); err != nil {
		return err
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.History.Enabled && c.History.Dir == "" {
		return fmt.Errorf("history.dir is required when history is enabled")
	}
	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown logging.format %q", c.Logging.Format)
	}
	return nil
}

// ParseAddressMode converts a configured address mode name. An empty name
// selects absolute addressing.
func ParseAddressMode(name string) (region.AddressMode, error) {
	switch strings.ToLower(name) {
	case "", "absolute":
		return region.Absolute, nil
	case "relative":
		return region.Relative, nil
	default:
		return 0, fmt.Errorf("unknown region.address_mode %q", name)
	}
}

// RegionOptions converts the region block into load options
func (c *Config) RegionOptions() ([]region.Option, error) {
	mode, err := ParseAddressMode(c.Region.AddressMode)
	if err != nil {
		return nil, err
	}
	return []region.Option{
		region.WithAddressMode(mode),
		region.WithRegionBase(c.Region.RegionBase),
		region.WithSlotIdentityCheck(c.Region.StrictSlotIdentity),
	}, nil
}

// SlogLevel converts the configured level name
func (l Logging) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown logging.level %q", l.Level)
	}
}

// LoadConfig loads configuration from the specified path
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	// Validate path to prevent directory traversal
	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	// Ensure config directory exists
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write with secure permissions (0600)
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig creates a new configuration with a generated API key and
// saves it to configPath
func BootstrapConfig(configPath string, image string) (*Config, error) {
	config := DefaultConfig()
	if image != "" {
		config.Region.Image = image
	}

	apiKey, err := GenerateSecureKey(32) // 256 bits
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Security.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./bootdesc.yaml"
	}

	// For Linux/macOS, use ~/.config/bootdesc/config.yaml
	configDir := filepath.Join(homeDir, ".config", "bootdesc")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}

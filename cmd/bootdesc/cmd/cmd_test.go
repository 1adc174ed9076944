package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/bootdesc/pkg/api"
	"github.com/ssargent/bootdesc/pkg/config"
	"github.com/ssargent/bootdesc/pkg/flash"
	"github.com/ssargent/bootdesc/pkg/region"
)

const testManifest = `active_slot: 0
base_address: 0x20
slots:
  - mode: xip
    app_version: 1
    security_version: 1
    stored_address: 0x08004000
    image_size: 0x10000
    stored_crc_address: 0x08014000
  - mode: ram
    app_version: 2
    security_version: 1
    stored_address: 0x08024000
    image_size: 0x10000
    stored_crc_address: 0x08034000
    execution_address: 0x20000000
`

type cliEnv struct {
	dir        string
	configPath string
	image      string
	manifest   string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "bootdesc_cmd_test")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	env := &cliEnv{
		dir:        tmpDir,
		configPath: filepath.Join(tmpDir, "config.yaml"),
		image:      filepath.Join(tmpDir, "flash.bin"),
		manifest:   filepath.Join(tmpDir, "region.yaml"),
	}

	img, err := flash.Create(env.image, 0x1000)
	require.NoError(t, err)
	require.NoError(t, img.Close())

	cfg := config.DefaultConfig()
	cfg.Region.Image = env.image
	cfg.Region.Size = 0x200
	cfg.History.Dir = filepath.Join(tmpDir, "history")
	cfg.Security.APIKey = "test-key"
	cfg.Logging.Level = "error"
	require.NoError(t, config.SaveConfig(cfg, env.configPath))

	require.NoError(t, os.WriteFile(env.manifest, []byte(testManifest), 0600))
	return env
}

// resetFlags restores every flag to its default so commands can run more
// than once in one process
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeCommand(t, append(args, "--config", e.configPath)...)
}

func TestChecksumCommand(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "bootdesc_checksum_test")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	file := filepath.Join(tmpDir, "check.bin")
	require.NoError(t, os.WriteFile(file, []byte("123456789"), 0600))

	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{name: "hex bytes", args: []string{"checksum", "313233343536373839"}, want: "0x765E7680\n"},
		{name: "spaced with prefix", args: []string{"checksum", "0x31 32 33 34 35 36 37 38 39"}, want: "0x765E7680\n"},
		{name: "file", args: []string{"checksum", "--file", file}, want: "0x765E7680\n"},
		{name: "invalid hex", args: []string{"checksum", "zz"}, wantErr: true},
		{name: "no input", args: []string{"checksum"}, wantErr: true},
		{name: "both inputs", args: []string{"checksum", "00", "--file", file}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeCommand(t, tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestInspectCommand_ErasedFlash(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "inspect")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signature mismatch")

	_, err = env.run(t, "verify")
	assert.Error(t, err)
}

func TestProvisionAndInspect(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "provision", env.manifest)
	require.NoError(t, err)
	assert.Contains(t, out, "Provisioned 2 slots, active slot 0")

	out, err = env.run(t, "verify")
	require.NoError(t, err)
	assert.Contains(t, out, "Region is valid")

	out, err = env.run(t, "inspect", "--format", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "1.0.0")
	assert.Contains(t, out, "0x08004000")
	assert.Contains(t, out, "xip")
	assert.Contains(t, out, "ram")
	assert.Contains(t, out, "0x20000000")

	out, err = env.run(t, "inspect", "--format", "json")
	require.NoError(t, err)

	var view api.RegionView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, uint32(2), view.Header.NumAppSlots)
	require.Len(t, view.Slots, 2)
	assert.True(t, view.Slots[0].Active)
	assert.True(t, view.Slots[1].Descriptor.Flags.CopyToExecution)
	assert.Equal(t, uint32(0x10000), view.Slots[1].Descriptor.ExecutionCopySizeBytes)

	_, err = env.run(t, "inspect", "--format", "yaml")
	assert.Error(t, err)
}

func TestProvisionCommand_DryRun(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "provision", env.manifest, "--dry-run", "--format", "json")
	require.NoError(t, err)

	var view api.RegionView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Len(t, view.Slots, 2)

	// nothing written
	_, err = env.run(t, "verify")
	assert.Error(t, err)
}

func TestProvisionCommand_FarBaseAddress(t *testing.T) {
	env := newCLIEnv(t)
	far := filepath.Join(env.dir, "far.yaml")
	require.NoError(t, os.WriteFile(far, []byte(strings.Replace(testManifest, "base_address: 0x20", "base_address: 0x08000020", 1)), 0600))

	for _, args := range [][]string{
		{"provision", far, "--dry-run"},
		{"provision", far},
	} {
		_, err := env.run(t, args...)
		assert.ErrorIs(t, err, region.ErrRegionTooLarge, "%v", args)
	}

	_, err := env.run(t, "verify")
	assert.Error(t, err)
}

func TestProvisionCommand_MissingManifest(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "provision", filepath.Join(env.dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestSwitchAndHistory(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "provision", env.manifest)
	require.NoError(t, err)

	out, err := env.run(t, "switch", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Active slot is now 1 (app version 2, security version 1)")

	_, err = env.run(t, "switch", "7")
	assert.Error(t, err)
	_, err = env.run(t, "switch", "one")
	assert.Error(t, err)

	out, err = env.run(t, "history", "list", "--format", "json")
	require.NoError(t, err)

	var snaps []api.SnapshotView
	require.NoError(t, json.Unmarshal([]byte(out), &snaps))
	require.Len(t, snaps, 2)
	assert.Equal(t, "switch slot 0 to 1", snaps[0].Reason)
	assert.Equal(t, "provision", snaps[1].Reason)

	out, err = env.run(t, "history", "list", "--format", "table", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, snaps[0].ID)
	assert.NotContains(t, out, snaps[1].ID)

	out, err = env.run(t, "history", "restore", snaps[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "active slot 0")

	// the erased flash saved by provision is not a valid region
	_, err = env.run(t, "history", "restore", snaps[1].ID)
	assert.Error(t, err)

	out, err = env.run(t, "history", "delete", snaps[1].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted snapshot")

	_, err = env.run(t, "history", "delete", snaps[1].ID)
	assert.Error(t, err)
}

func TestRootCommand_MissingConfig(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "bootdesc_root_test")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	_, err = executeCommand(t, "inspect", "--config", filepath.Join(tmpDir, "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file does not exist")
}

func TestRootCommand_FlagOverrides(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "provision", env.manifest)
	require.NoError(t, err)

	// the region starts at 0, so reading from 0x40 finds no signature
	_, err = env.run(t, "verify", "--offset", "0x40")
	assert.Error(t, err)

	_, err = env.run(t, "verify", "--image", filepath.Join(env.dir, "missing.bin"))
	assert.Error(t, err)

	_, err = env.run(t, "verify", "--log-level", "debug")
	assert.NoError(t, err)
}

func TestInitCommand(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "bootdesc_init_test")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	configPath := filepath.Join(tmpDir, "conf", "config.yaml")
	image := filepath.Join(tmpDir, "flash.bin")

	t.Run("Successful initialization", func(t *testing.T) {
		out, err := executeCommand(t, "init", "--config", configPath, "--image", image, "--image-size", "4096")
		require.NoError(t, err)
		assert.Contains(t, out, "Wrote config")
		assert.FileExists(t, configPath)

		cfg, err := config.LoadConfig(configPath)
		require.NoError(t, err)
		assert.Equal(t, image, cfg.Region.Image)
		assert.Len(t, cfg.Security.APIKey, 64)

		info, err := os.Stat(image)
		require.NoError(t, err)
		assert.Equal(t, int64(4096), info.Size())
	})

	t.Run("Existing config is kept", func(t *testing.T) {
		before, err := os.ReadFile(configPath)
		require.NoError(t, err)

		out, err := executeCommand(t, "init", "--config", configPath)
		require.NoError(t, err)
		assert.Contains(t, out, "already exists")

		after, err := os.ReadFile(configPath)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("Force reinitialization", func(t *testing.T) {
		out, err := executeCommand(t, "init", "--config", configPath, "--image", image, "--image-size", "4096", "--force")
		require.NoError(t, err)
		assert.Contains(t, out, "leaving it untouched")
	})
}

type fakeStarter struct {
	config api.ServerConfig
	svc    api.RegionService
	called bool
}

func (f *fakeStarter) StartServer(_ context.Context, svc api.RegionService, config api.ServerConfig, _ *api.Metrics) error {
	f.called = true
	f.svc = svc
	f.config = config
	return nil
}

type fakeServerFactory struct {
	starter *fakeStarter
}

func (f *fakeServerFactory) CreateServerStarter() api.ServerStarter {
	return f.starter
}

func TestServeCommand(t *testing.T) {
	env := newCLIEnv(t)
	starter := &fakeStarter{}
	SetServerFactory(&fakeServerFactory{starter: starter})
	t.Cleanup(func() { SetServerFactory(nil) })

	_, err := env.run(t, "serve", "--port", "9555", "--bind", "0.0.0.0")
	require.NoError(t, err)
	require.True(t, starter.called)
	assert.NotNil(t, starter.svc)
	assert.Equal(t, api.ServerConfig{Port: 9555, Bind: "0.0.0.0", APIKey: "test-key"}, starter.config)

	_, err = env.run(t, "serve", "--api-key", "other")
	require.NoError(t, err)
	assert.Equal(t, api.ServerConfig{Port: 9300, Bind: "127.0.0.1", APIKey: "other"}, starter.config)
}

func TestServeCommand_AutoAPIKey(t *testing.T) {
	env := newCLIEnv(t)
	cfg, err := config.LoadConfig(env.configPath)
	require.NoError(t, err)
	cfg.Security.APIKey = "auto"
	require.NoError(t, config.SaveConfig(cfg, env.configPath))

	starter := &fakeStarter{}
	SetServerFactory(&fakeServerFactory{starter: starter})
	t.Cleanup(func() { SetServerFactory(nil) })

	out, err := env.run(t, "serve")
	require.NoError(t, err)
	assert.Contains(t, out, "Generated API key for this run")
	assert.Len(t, starter.config.APIKey, 64)
}

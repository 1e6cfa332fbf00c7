package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-accessory-hub/internal/infrastructure/logger"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 104, cfg.Hub.ChannelID)
	assert.Equal(t, 64, cfg.Hub.SendQueueSize)
	assert.Equal(t, "/accessory", cfg.Accessory.Path)
	assert.Equal(t, []int{104}, cfg.Accessory.Channels)
	assert.Equal(t, 54*time.Second, cfg.Accessory.PingInterval)
	assert.Equal(t, int64(65536), cfg.Accessory.ReadLimit)
	assert.Equal(t, logger.LevelInfo, cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestParse_OverridesDefaults(t *testing.T) {
	t.Setenv("HUB_ADDR", "127.0.0.1:9000")

	cfg, err := Parse([]byte(`
server:
  addr: ${HUB_ADDR}
hub:
  send_queue_size: 8
accessory:
  channels: [104, 105]
  write_timeout: 2s
log:
  level: debug
  format: json
`))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 104, cfg.Hub.ChannelID)
	assert.Equal(t, 8, cfg.Hub.SendQueueSize)
	assert.Equal(t, []int{104, 105}, cfg.Accessory.Channels)
	assert.Equal(t, 2*time.Second, cfg.Accessory.WriteTimeout)
	assert.Equal(t, logger.LevelDebug, cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "stdout", cfg.Log.Output)
	assert.NoError(t, cfg.Validate())
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("log:\n  level: loud\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("hub: [1, 2"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"gin mode", func(c *Config) { c.Server.GinMode = "verbose" }, "server.gin_mode"},
		{"channel id", func(c *Config) { c.Hub.ChannelID = 0 }, "hub.channel_id"},
		{"queue size", func(c *Config) { c.Hub.SendQueueSize = -1 }, "hub.send_queue_size"},
		{"path", func(c *Config) { c.Accessory.Path = "accessory" }, "accessory.path"},
		{"channels", func(c *Config) { c.Accessory.Channels = nil }, "accessory.channels"},
		{"ping", func(c *Config) { c.Accessory.PingInterval = time.Minute }, "accessory.ping_interval"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"log file", func(c *Config) { c.Log.Output = "file" }, "log.file_path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadAndValidate(t *testing.T) {
	cfg, err := LoadAndValidate("")
	require.NoError(t, err)
	assert.Equal(t, Default().Server, cfg.Server)

	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("hub:\n  channel_id: 7\naccessory:\n  channels: [7]\n"), 0o600))
	cfg, err = LoadAndValidate(good)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Hub.ChannelID)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("hub:\n  send_queue_size: 0\n"), 0o600))
	_, err = LoadAndValidate(bad)
	assert.ErrorContains(t, err, "hub.send_queue_size")

	_, err = LoadAndValidate(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "read config file")
}

// Package config loads the service configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/mcuadros/go-defaults"

	"go-accessory-hub/internal/infrastructure/accessory"
	"go-accessory-hub/internal/infrastructure/hub"
	"go-accessory-hub/internal/infrastructure/logger"
)

type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Hub       hub.Config       `yaml:"hub"`
	Accessory accessory.Config `yaml:"accessory"`
	Log       logger.Config    `yaml:"log"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"             default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"5s"`
	// GinMode is passed to gin.SetMode.
	GinMode string `yaml:"gin_mode" default:"release"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	defaults.SetDefaults(&cfg.Server)
	defaults.SetDefaults(&cfg.Hub)
	defaults.SetDefaults(&cfg.Accessory)
	cfg.Accessory.Channels = []int{hub.DefaultChannelID}
	cfg.Log = *logger.NewDefaultConfig()
	return cfg
}

// Validate reports every invalid setting, each prefixed with its YAML path.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr: must not be empty"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout: must be positive"))
	}
	switch c.Server.GinMode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("server.gin_mode: unknown mode %q", c.Server.GinMode))
	}

	if c.Hub.ChannelID <= 0 {
		errs = append(errs, fmt.Errorf("hub.channel_id: must be positive, got %d", c.Hub.ChannelID))
	}
	if c.Hub.SendQueueSize <= 0 {
		errs = append(errs, fmt.Errorf("hub.send_queue_size: must be positive, got %d", c.Hub.SendQueueSize))
	}

	if c.Accessory.Path == "" || c.Accessory.Path[0] != '/' {
		errs = append(errs, fmt.Errorf("accessory.path: must start with '/', got %q", c.Accessory.Path))
	}
	if len(c.Accessory.Channels) == 0 {
		errs = append(errs, errors.New("accessory.channels: at least one channel is required"))
	}
	if c.Accessory.WriteTimeout <= 0 {
		errs = append(errs, errors.New("accessory.write_timeout: must be positive"))
	}
	if c.Accessory.PingInterval > 0 && c.Accessory.PongTimeout > 0 && c.Accessory.PingInterval >= c.Accessory.PongTimeout {
		errs = append(errs, errors.New("accessory.ping_interval: must be shorter than pong_timeout"))
	}

	switch c.Log.Format {
	case "json", "text", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	switch c.Log.Output {
	case "stdout", "stderr":
	case "file":
		if c.Log.FilePath == "" {
			errs = append(errs, errors.New("log.file_path: required when output is file"))
		}
	default:
		errs = append(errs, fmt.Errorf("log.output: unknown output %q", c.Log.Output))
	}

	return errors.Join(errs...)
}

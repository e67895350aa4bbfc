// Package conf contains the configuration of the rtspd command.
package conf

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables that override
// configuration keys. Example: RTSPD_LOG_LEVEL=debug
const EnvPrefix = "RTSPD"

// Conf is the configuration of the rtspd command.
type Conf struct {
	// address of the RTSP/TCP listener.
	RTSPAddress string `mapstructure:"rtsp_address"`

	// (optional) address of the RTSP-over-WebSocket listener.
	WebSocketAddress string `mapstructure:"websocket_address"`

	// (optional) address of the Prometheus metrics endpoint.
	MetricsAddress string `mapstructure:"metrics_address"`

	// timeout of read operations.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`

	// timeout of write operations.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// maximum number of simultaneous connections. Zero means unlimited.
	MaxConnections int `mapstructure:"max_connections"`

	// logging settings.
	Log LogConf `mapstructure:"log"`
}

// LogConf contains logging settings.
type LogConf struct {
	// debug, info, warn or error.
	Level string `mapstructure:"level"`

	// console or json.
	Format string `mapstructure:"format"`

	// stdout, stderr or file paths.
	Outputs []string `mapstructure:"outputs"`

	// rotation of file outputs.
	Rotation RotationConf `mapstructure:"rotation"`
}

// RotationConf contains settings of log file rotation.
type RotationConf struct {
	Enable     bool `mapstructure:"enable"`
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
}

// Default returns the default configuration.
func Default() *Conf {
	return &Conf{
		RTSPAddress:  ":8554",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		Log: LogConf{
			Level:   "info",
			Format:  "console",
			Outputs: []string{"stdout"},
			Rotation: RotationConf{
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
			},
		},
	}
}

func setDefaults(v *viper.Viper, c *Conf) {
	v.SetDefault("rtsp_address", c.RTSPAddress)
	v.SetDefault("websocket_address", c.WebSocketAddress)
	v.SetDefault("metrics_address", c.MetricsAddress)
	v.SetDefault("read_timeout", c.ReadTimeout)
	v.SetDefault("write_timeout", c.WriteTimeout)
	v.SetDefault("max_connections", c.MaxConnections)
	v.SetDefault("log.level", c.Log.Level)
	v.SetDefault("log.format", c.Log.Format)
	v.SetDefault("log.outputs", c.Log.Outputs)
	v.SetDefault("log.rotation.enable", c.Log.Rotation.Enable)
	v.SetDefault("log.rotation.max_size_mb", c.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", c.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", c.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", c.Log.Rotation.Compress)
}

// Load reads the configuration from the YAML file at path (if non-empty)
// and applies environment overrides.
func Load(path string) (*Conf, error) {
	c := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v, c)

	if path != "" {
		v.SetConfigFile(path)

		err := v.ReadInConfig()
		if err != nil {
			return nil, fmt.Errorf("unable to read %s: %w", path, err)
		}
	}

	err := v.Unmarshal(c)
	if err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}

	err = c.Validate()
	if err != nil {
		return nil, err
	}

	return c, nil
}

// Validate checks the configuration.
func (c *Conf) Validate() error {
	if c.RTSPAddress == "" {
		return errors.New("rtsp_address is empty")
	}

	if c.ReadTimeout <= 0 {
		return errors.New("read_timeout must be greater than zero")
	}

	if c.WriteTimeout <= 0 {
		return errors.New("write_timeout must be greater than zero")
	}

	if c.MaxConnections < 0 {
		return errors.New("max_connections must not be negative")
	}

	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("unsupported log format '%s'", c.Log.Format)
	}

	if len(c.Log.Outputs) == 0 {
		return errors.New("no log outputs")
	}

	return nil
}

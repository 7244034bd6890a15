package viewer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds viewer settings. Sources, lowest precedence first: defaults,
// viewer.yml, JAMOVEO_* environment variables, command-line flags.
type Config struct {
	ServerURL      string        `mapstructure:"server_url"`
	Token          string        `mapstructure:"token"`
	Instrument     string        `mapstructure:"instrument"`
	Grace          time.Duration `mapstructure:"grace"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
}

// Flags returns the viewer's command-line flag set.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("viewer", pflag.ContinueOnError)
	fs.String("config", "", "path to viewer.yml")
	fs.String("server-url", "", "websocket endpoint, e.g. ws://localhost:3000/ws")
	fs.String("token", "", "bearer token from /api/users/login")
	fs.String("instrument", "", "your instrument; vocals hides chords")
	return fs
}

// LoadConfig resolves the configuration. A missing config file is not an error.
func LoadConfig(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("server_url", "ws://localhost:3000/ws")
	v.SetDefault("token", "")
	v.SetDefault("instrument", "")
	v.SetDefault("grace", "5s")
	v.SetDefault("reconnect_delay", "2s")
	v.SetDefault("write_wait", "10s")

	v.SetEnvPrefix("JAMOVEO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for flag, key := range map[string]string{
			"server-url": "server_url",
			"token":      "token",
			"instrument": "instrument",
		} {
			if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", flag, err)
			}
		}
	}

	if path := configPath(fs); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("viewer")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read viewer config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode viewer config: %w", err)
	}
	if cfg.ServerURL == "" {
		return nil, errors.New("server_url is required")
	}
	return &cfg, nil
}

func configPath(fs *pflag.FlagSet) string {
	if fs == nil {
		return ""
	}
	path, _ := fs.GetString("config")
	return path
}

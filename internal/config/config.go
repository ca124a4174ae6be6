// Package config loads the startup configuration.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config enumerates every startup knob of the server process.
type Config struct {
	// ListenAddr is the TCP endpoint to bind.
	ListenAddr string `mapstructure:"listen_addr"`
	// DataDir is the root directory of the database.
	DataDir string `mapstructure:"data_dir"`
	// CreateDB initializes a fresh empty catalog when DataDir holds none.
	CreateDB bool `mapstructure:"create_db"`
	// AutoFlush makes FLUSH implicit after every non-SELECT statement.
	AutoFlush bool `mapstructure:"auto_flush"`
}

// Load reads the yaml config at path; an empty path yields the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("listen_addr", "127.0.0.1:8855")
	v.SetDefault("data_dir", "./data")
	v.SetDefault("create_db", true)
	v.SetDefault("auto_flush", false)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Copyright 2026 SG Prop Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultConfigFileName is the name of the config file (ceaquery.yaml).
	DefaultConfigFileName = "ceaquery"

	// StoreFileName is the SQLite store inside the data directory.
	StoreFileName = "cea-transactions.db"
)

// Config holds all configuration for the ceaquery server.
// Priority: CLI flags > config file > env vars > defaults
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Data    DataConfig    `mapstructure:"data"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Query   QueryConfig   `mapstructure:"query"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds the HTTP listener configuration.
type ServerConfig struct {
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// DataConfig points at the processed-data directory.
type DataConfig struct {
	Dir string `mapstructure:"dir"`
}

// CacheConfig sizes the two response cache pools. Zero values fall back to
// the server package defaults.
type CacheConfig struct {
	APICapacity   int           `mapstructure:"api_capacity"`
	APITTL        time.Duration `mapstructure:"api_ttl"`
	StatsCapacity int           `mapstructure:"stats_capacity"`
	StatsTTL      time.Duration `mapstructure:"stats_ttl"`
}

// QueryConfig bounds query execution.
type QueryConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// StorePath returns the SQLite store path inside the data directory.
func (c *Config) StorePath() string {
	return filepath.Join(c.Data.Dir, StoreFileName)
}

// LoadConfig assembles configuration from flags, file, env, and defaults.
func LoadConfig(cfgFile string) (*Config, error) {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(viper.GetString("data.dir"))
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/ceaquery/")
		viper.SetConfigName(DefaultConfigFileName)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file %s: %w", viper.ConfigFileUsed(), err)
		}
		// Config file not found; using defaults + env vars + flags
	}

	viper.SetEnvPrefix("CEAQUERY")
	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 3200)
	viper.SetDefault("server.cors_origins", []string{"*"})

	viper.SetDefault("data.dir", "data/processed")

	viper.SetDefault("cache.api_capacity", 0)
	viper.SetDefault("cache.api_ttl", time.Duration(0))
	viper.SetDefault("cache.stats_capacity", 0)
	viper.SetDefault("cache.stats_ttl", time.Duration(0))

	viper.SetDefault("query.timeout", time.Duration(0))

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
}

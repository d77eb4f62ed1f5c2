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
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sgproplabs/ceaquery/internal/version"
)

var (
	cfgFile string
	config  *Config
)

var rootCmd = &cobra.Command{
	Use:     "ceaquery",
	Short:   "Read-only analytics API over CEA salesperson transaction records",
	Long:    `ceaquery serves aggregate statistics, time series, and agent leaderboards over a precomputed SQLite store of Singapore CEA property transactions.`,
	Version: version.Get(),
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: <data-dir>/ceaquery.yaml)")

	// Server flags
	rootCmd.PersistentFlags().String("host", "0.0.0.0", "HTTP server host")
	rootCmd.PersistentFlags().Int("port", 3200, "HTTP server port")
	rootCmd.PersistentFlags().StringSlice("cors-origins", []string{"*"}, "allowed CORS origins (empty disables CORS)")

	// Data flags
	rootCmd.PersistentFlags().String("data-dir", "data/processed", "directory holding the SQLite store and dataset catalog")

	// Cache flags
	rootCmd.PersistentFlags().Int("api-cache-capacity", 0, "API response cache capacity (0 = default)")
	rootCmd.PersistentFlags().Duration("api-cache-ttl", 0, "API response cache TTL (0 = default)")
	rootCmd.PersistentFlags().Int("stats-cache-capacity", 0, "stats response cache capacity (0 = default)")
	rootCmd.PersistentFlags().Duration("stats-cache-ttl", 0, "stats response cache TTL (0 = default)")

	// Query flags
	rootCmd.PersistentFlags().Duration("query-timeout", 0, "per-request query budget (0 = default)")

	// Logging flags
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")

	// Bind flags to viper
	_ = viper.BindPFlag("server.host", rootCmd.PersistentFlags().Lookup("host"))
	_ = viper.BindPFlag("server.port", rootCmd.PersistentFlags().Lookup("port"))
	_ = viper.BindPFlag("server.cors_origins", rootCmd.PersistentFlags().Lookup("cors-origins"))

	_ = viper.BindPFlag("data.dir", rootCmd.PersistentFlags().Lookup("data-dir"))

	_ = viper.BindPFlag("cache.api_capacity", rootCmd.PersistentFlags().Lookup("api-cache-capacity"))
	_ = viper.BindPFlag("cache.api_ttl", rootCmd.PersistentFlags().Lookup("api-cache-ttl"))
	_ = viper.BindPFlag("cache.stats_capacity", rootCmd.PersistentFlags().Lookup("stats-cache-capacity"))
	_ = viper.BindPFlag("cache.stats_ttl", rootCmd.PersistentFlags().Lookup("stats-cache-ttl"))

	_ = viper.BindPFlag("query.timeout", rootCmd.PersistentFlags().Lookup("query-timeout"))

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	var err error
	config, err = LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
}

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
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "github.com/sgproplabs/ceaquery/internal/sqlitedriver" // registers "sqlite3" driver

	"github.com/sgproplabs/ceaquery/internal/log"
	"github.com/sgproplabs/ceaquery/pkg/precompute"
)

var precomputeCmd = &cobra.Command{
	Use:   "precompute",
	Short: "Rebuild the aggregate tables inside the store",
	Long: `Rebuild the five aggregate tables from the transactions table.

This is the only command that opens the store writable. Run it after every
data refresh; serve reads the aggregates it leaves behind.`,
	RunE: runPrecompute,
}

func init() {
	rootCmd.AddCommand(precomputeCmd)
}

func runPrecompute(cmd *cobra.Command, args []string) error {
	logger, err := log.New(config.Logging.Level, config.Logging.Format)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	path := config.StorePath()
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("store %q not found: %w", path, err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("open store %q: %w", path, err)
	}
	defer db.Close()

	started := time.Now()
	if err := precompute.Run(cmd.Context(), db, logger); err != nil {
		return err
	}
	logger.Info("precompute finished",
		zap.String("store", path),
		zap.Duration("took", time.Since(started)))
	return nil
}

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
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sgproplabs/ceaquery/internal/log"
	"github.com/sgproplabs/ceaquery/pkg/dataset"
	"github.com/sgproplabs/ceaquery/pkg/query"
	"github.com/sgproplabs/ceaquery/pkg/server"
	"github.com/sgproplabs/ceaquery/pkg/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analytics API over the SQLite store",
	Long: `Open the transaction store read-only and serve the HTTP API.

The store must already exist; run the data pipeline (and ceaquery precompute)
before serving. Press Ctrl+C to gracefully shut down.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := log.New(config.Logging.Level, config.Logging.Format)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(config.StorePath())
	if err != nil {
		return err
	}
	defer st.Close()

	engine, err := query.NewEngine(ctx, st)
	if err != nil {
		return err
	}

	catalog, err := dataset.Load(config.Data.Dir, logger)
	if err != nil {
		return err
	}
	defer catalog.Close()

	srv := server.New(server.Config{
		Addr:               config.Addr(),
		CORSOrigins:        config.Server.CORSOrigins,
		QueryTimeout:       config.Query.Timeout,
		APICacheCapacity:   config.Cache.APICapacity,
		APICacheTTL:        config.Cache.APITTL,
		StatsCacheCapacity: config.Cache.StatsCapacity,
		StatsCacheTTL:      config.Cache.StatsTTL,
	}, st, engine, catalog, logger)

	// A new deployment rewrites datasets.json; cached bodies built from the
	// previous store are stale the moment it lands.
	if err := catalog.Watch(srv.FlushCaches); err != nil {
		return err
	}

	logger.Info("starting ceaquery",
		zap.String("addr", config.Addr()),
		zap.String("store", config.StorePath()))
	return srv.Start(ctx)
}

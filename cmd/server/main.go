/*
 * Copyright (c) 2026, Ringboard, Inc. (https://www.ringboard.io).
 *
 * Ringboard, Inc. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

// Package main is the entry point for starting the Ringboard dashboard server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ringboard/ringboard/internal/dashboard"
	"github.com/ringboard/ringboard/internal/system/cache"
	"github.com/ringboard/ringboard/internal/system/cache/persist"
	"github.com/ringboard/ringboard/internal/system/config"
	"github.com/ringboard/ringboard/internal/system/log"
)

func main() {
	logger := log.GetLogger()

	configPath := flag.String("config", "ringboard.yaml", "Path to the configuration file")
	backendURL := flag.String("backend", "http://localhost:9090/api", "Base URL of the data backend")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("Failed to load configuration", log.Error(err))
	}

	adapter := newPersistenceStore(logger, cfg.Persistence)
	registry := dashboard.NewRegistry(cfg.Cache, adapter, cache.NewSystemClock())
	backend := dashboard.NewHTTPBackend(*backendURL, 30*time.Second)
	service := dashboard.NewService(registry, backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		fetched := service.WarmUp(ctx)
		logger.Info("Cache warm-up finished", log.Int("fetched", fetched))
	}()

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Hostname, cfg.Server.Port),
		Handler:           newMux(registry),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting server", log.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", log.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", log.Error(err))
	}

	registry.Close()
	if adapter != nil {
		if err := adapter.Close(); err != nil {
			logger.Error("Failed to close persistence store", log.Error(err))
		}
	}
}

// newPersistenceStore builds the durable medium from configuration. Any
// failure here degrades to an in-memory-only cache rather than refusing to
// start: persistence is a convenience, not a requirement.
func newPersistenceStore(logger *log.Logger, cfg config.PersistenceConfig) persist.Store {
	if cfg.Disabled {
		return nil
	}

	ds := cfg.DataSource
	switch ds.Type {
	case persist.DataSourceTypeSQLite:
		path := ds.Path
		if path == "" {
			path = "ringboard-cache.db"
		}
		store, err := persist.NewSQLStore(persist.DataSourceTypeSQLite, path)
		if err != nil {
			logger.Error("Failed to open sqlite persistence store, continuing without persistence",
				log.Error(err))
			return nil
		}
		return store
	case persist.DataSourceTypePostgres:
		dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
			ds.Hostname, ds.Port, ds.Name, ds.Username, ds.Password, ds.SSLMode)
		store, err := persist.NewSQLStore(persist.DataSourceTypePostgres, dsn)
		if err != nil {
			logger.Error("Failed to open postgres persistence store, continuing without persistence",
				log.Error(err))
			return nil
		}
		return store
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", ds.Hostname, ds.Port),
			Password: ds.Password,
		})
		return persist.NewRedisStore(client)
	case "":
		return nil
	default:
		logger.Error("Unknown persistence data source type, continuing without persistence",
			log.String("type", ds.Type))
		return nil
	}
}

func newMux(registry *dashboard.Registry) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("/cache/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(registry.Stats()); err != nil {
			log.GetLogger().Error("Failed to encode cache stats", log.Error(err))
		}
	})

	return mux
}

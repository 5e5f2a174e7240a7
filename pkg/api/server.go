// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mchmarny/craftplan/pkg/cache"
	"github.com/mchmarny/craftplan/pkg/catalog"
	"github.com/mchmarny/craftplan/pkg/defaults"
	"github.com/mchmarny/craftplan/pkg/live"
	"github.com/mchmarny/craftplan/pkg/logging"
	"github.com/mchmarny/craftplan/pkg/planner"
	"github.com/mchmarny/craftplan/pkg/server"
)

const (
	name           = "craftpland"
	versionDefault = "dev"

	envCatalog  = "CRAFTPLAN_CATALOG"
	envCache    = "CRAFTPLAN_CACHE"
	envCacheTTL = "CRAFTPLAN_CACHE_TTL"
)

var (
	// overridden during build with ldflags to reflect actual version info
	// e.g., -X "github.com/mchmarny/craftplan/pkg/api.version=1.0.0"
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

// Config holds the daemon settings read from the environment.
type Config struct {
	// Catalog is a catalog source accepted by catalog.LoadFrom.
	Catalog string
	// Cache is "memory", a redis:// URL, or empty for memory.
	Cache string
	// CacheTTL is the lifetime of cached plans.
	CacheTTL time.Duration
}

func configFromEnv() (Config, error) {
	cfg := Config{
		Catalog:  strings.TrimSpace(os.Getenv(envCatalog)),
		Cache:    strings.TrimSpace(os.Getenv(envCache)),
		CacheTTL: defaults.PlanCacheTTL,
	}
	if v := strings.TrimSpace(os.Getenv(envCacheTTL)); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl <= 0 {
			return cfg, fmt.Errorf("invalid %s %q: must be a positive duration", envCacheTTL, v)
		}
		cfg.CacheTTL = ttl
	}
	return cfg, nil
}

// Serve starts the API server and blocks until shutdown.
// It configures logging, loads the catalog, sets up routes, and handles graceful shutdown.
// Returns an error if the server fails to start or encounters a fatal error.
func Serve() error {
	ctx := context.Background()

	logging.SetDefaultStructuredLogger(name, version)
	slog.Info("starting",
		"name", name,
		"version", version,
		"commit", commit,
		"date", date,
	)

	cfg, err := configFromEnv()
	if err != nil {
		return err
	}

	cat, err := catalog.LoadFrom(ctx, cfg.Catalog)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	c, err := cache.NewFromURL(cfg.Cache, cfg.CacheTTL)
	if err != nil {
		return fmt.Errorf("failed to create plan cache: %w", err)
	}
	if closer, ok := c.(io.Closer); ok {
		defer closer.Close()
	}

	b := planner.NewBuilder(
		planner.WithVersion(version),
		planner.WithCatalog(cat),
		planner.WithCache(c),
	)

	s := server.New(
		server.WithName(name),
		server.WithVersion(version),
		server.WithHandler(routes(b, live.NewHandler(cat))),
	)

	if err := s.Run(ctx); err != nil {
		slog.Error("server exited with error", "error", err)
		return err
	}

	return nil
}

func routes(b *planner.Builder, sessions http.Handler) map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		"/v1/plan":    b.HandlePlan,
		"/v1/catalog": b.HandleCatalog,
		"/v1/session": sessions.ServeHTTP,
	}
}

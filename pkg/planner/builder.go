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

package planner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/mchmarny/craftplan/pkg/cache"
	"github.com/mchmarny/craftplan/pkg/catalog"
	"github.com/mchmarny/craftplan/pkg/defaults"
	cperrors "github.com/mchmarny/craftplan/pkg/errors"
	"github.com/mchmarny/craftplan/pkg/header"
)

// Option is a functional option for configuring Builder instances.
type Option func(*Builder)

// WithVersion sets the version stamped on built plans.
func WithVersion(version string) Option {
	return func(b *Builder) {
		b.Version = version
	}
}

// WithCatalog pins the catalog used for every plan. Without it the process
// default catalog is used.
func WithCatalog(cat *catalog.Catalog) Option {
	return func(b *Builder) {
		b.Catalog = cat
	}
}

// WithCache enables plan caching.
func WithCache(c cache.Cache) Option {
	return func(b *Builder) {
		b.Cache = c
	}
}

// Builder expands objectives into Plans.
type Builder struct {
	Version string
	Catalog *catalog.Catalog
	Cache   cache.Cache
}

// NewBuilder creates a Builder with the provided options.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build expands and aggregates the objective under settings.
func (b *Builder) Build(ctx context.Context, obj Objective, settings Settings) (*Plan, error) {
	start := time.Now()
	defer func() {
		planBuildDuration.Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, defaults.PlanBuildTimeout)
	defer cancel()

	p, err := b.build(ctx, obj, settings)
	if err != nil {
		code := cperrors.CodeOf(err)
		if code == "" {
			code = cperrors.ErrCodeInternal
		}
		planBuildErrors.WithLabelValues(string(code)).Inc()
		return nil, err
	}
	return p, nil
}

func (b *Builder) build(ctx context.Context, obj Objective, settings Settings) (*Plan, error) {
	cat := b.Catalog
	if cat == nil {
		var err error
		if cat, err = catalog.Default(ctx); err != nil {
			return nil, err
		}
	}
	if settings == nil {
		settings = Settings{}
	}

	key := planKey(cat, obj, settings)
	if data, ok := cache.Lookup(ctx, b.Cache, key); ok {
		var cached Plan
		err := json.Unmarshal(data, &cached)
		if err == nil {
			planCacheResults.WithLabelValues("hit").Inc()
			return &cached, nil
		}
		slog.Warn("discarding unreadable cached plan", "key", key, "error", err)
	}
	if b.Cache != nil {
		planCacheResults.WithLabelValues("miss").Inc()
	}

	records, err := Expand(ctx, cat, settings, obj.Item, obj.Count)
	if err != nil {
		return nil, err
	}

	p := &Plan{
		Objective: obj,
		Settings:  settings.Clone(),
		Records:   records,
		Totals:    Aggregate(records),
	}
	p.Init(header.KindPlan, header.APIVersion, b.Version)
	p.Metadata["catalog"] = cat.Source()
	planRecords.Observe(float64(len(records)))

	slog.Debug("plan built",
		"item", obj.Item,
		"count", obj.Count,
		"settings", settings.String(),
		"records", len(records),
		"machines", len(p.Totals))

	if b.Cache != nil {
		if data, err := json.Marshal(p); err != nil {
			slog.Warn("failed to encode plan for cache", "error", err)
		} else {
			cache.Store(ctx, b.Cache, key, data)
		}
	}
	return p, nil
}

// planKey identifies a plan by catalog contents, objective and settings.
func planKey(cat *catalog.Catalog, obj Objective, settings Settings) string {
	h := sha256.New()
	for _, part := range []string{
		cat.Digest(),
		obj.Item,
		strconv.FormatFloat(obj.Count, 'g', -1, 64),
		settings.String(),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return "plan:" + hex.EncodeToString(h.Sum(nil))
}

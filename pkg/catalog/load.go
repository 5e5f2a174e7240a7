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

package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/mchmarny/craftplan/pkg/defaults"
	cperrors "github.com/mchmarny/craftplan/pkg/errors"
	"github.com/mchmarny/craftplan/pkg/header"
	"github.com/mchmarny/craftplan/pkg/k8s/client"
	"github.com/mchmarny/craftplan/pkg/oci"
	"github.com/mchmarny/craftplan/pkg/serializer"
)

var (
	defaultMu         sync.Mutex
	defaultCatalog    *Catalog
	defaultGeneration = -1
)

// Source kinds label load metrics. Source strings carry paths and URLs and
// are only logged.
const (
	kindEmbedded  = "embedded"
	kindDir       = "dir"
	kindOCI       = "oci"
	kindConfigMap = "cm"
	kindHTTP      = "http"
	kindFile      = "file"
	kindMemory    = "memory"
)

func providerKind(p DataProvider) string {
	switch p.(type) {
	case *EmbeddedDataProvider:
		return kindEmbedded
	case *LayeredDataProvider:
		return kindDir
	default:
		return kindMemory
	}
}

func documentKind(source string) string {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return kindHTTP
	}
	return kindFile
}

// Load reads the recipe and machine tables from provider, checks their
// headers and validates the resulting catalog.
func Load(ctx context.Context, provider DataProvider) (*Catalog, error) {
	if provider == nil {
		return nil, cperrors.New(cperrors.ErrCodeInvalidRequest, "data provider is nil")
	}
	return load(ctx, provider, providerKind(provider))
}

func load(ctx context.Context, provider DataProvider, kind string) (*Catalog, error) {

	var (
		recipes  RecipeTable
		machines MachineTable
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return readTable(gctx, provider, RecipesFileName, header.KindRecipeTable, &recipes)
	})
	g.Go(func() error {
		return readTable(gctx, provider, MachinesFileName, header.KindMachineTable, &machines)
	})
	if err := g.Wait(); err != nil {
		loadTotal.WithLabelValues(kind, "error").Inc()
		return nil, err
	}

	c := New(recipes.Recipes, machines.Machines, recipes.Resources...)
	c.Metadata["source"] = provider.Source(RecipesFileName)

	if err := c.Validate(); err != nil {
		loadTotal.WithLabelValues(kind, "invalid").Inc()
		return nil, err
	}

	loadTotal.WithLabelValues(kind, "success").Inc()
	slog.Debug("catalog loaded",
		"source", c.Source(),
		"recipes", len(c.Recipes),
		"machines", len(c.Machines),
		"resources", len(c.Resources))
	return c, nil
}

type checkedDocument interface {
	Check(want header.Kind) error
}

func readTable(ctx context.Context, provider DataProvider, name string, kind header.Kind, v checkedDocument) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := provider.ReadFile(name)
	if err != nil {
		return cperrors.Wrap(cperrors.ErrCodeNotFound, fmt.Sprintf("failed to read %s", name), err)
	}
	if err := yaml.Unmarshal(b, v); err != nil {
		return cperrors.Wrap(cperrors.ErrCodeInvalidRequest, fmt.Sprintf("failed to parse %s", name), err)
	}
	if err := v.Check(kind); err != nil {
		return cperrors.Wrap(cperrors.ErrCodeInvalidRequest, fmt.Sprintf("invalid %s", name), err)
	}
	return nil
}

// Default returns the catalog served by the process-wide data provider.
// The result is cached until SetDataProvider is called again.
func Default(ctx context.Context) (*Catalog, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	gen := currentGeneration()
	if defaultCatalog != nil && defaultGeneration == gen {
		catalogCacheHits.Inc()
		return defaultCatalog, nil
	}
	catalogCacheMisses.Inc()

	c, err := Load(ctx, GetDataProvider())
	if err != nil {
		return nil, err
	}
	defaultCatalog = c
	defaultGeneration = gen
	return c, nil
}

// LoadFrom loads a catalog from source:
//
//   - "" uses Default
//   - oci://registry/repo:tag pulls a pushed catalog directory
//   - cm://namespace/name reads recipes.yaml and machines.yaml keys of a ConfigMap
//   - http(s) URLs and files hold a single Catalog document
//   - directories are layered over the embedded tables
func LoadFrom(ctx context.Context, source string) (*Catalog, error) {
	source = strings.TrimSpace(source)

	switch {
	case source == "":
		return Default(ctx)
	case oci.IsReference(source):
		return loadFromOCI(ctx, source)
	case strings.HasPrefix(source, serializer.ConfigMapURIScheme):
		return loadFromConfigMap(ctx, source)
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return loadDocument(ctx, source)
	}

	info, err := os.Stat(source)
	if err != nil {
		return nil, cperrors.Wrap(cperrors.ErrCodeNotFound, fmt.Sprintf("catalog source not found: %s", source), err)
	}
	if info.IsDir() {
		return loadFromDir(ctx, source, source, kindDir)
	}
	return loadDocument(ctx, source)
}

func loadFromDir(ctx context.Context, dir, source, kind string) (*Catalog, error) {
	p, err := NewLayeredDataProvider(NewEmbeddedDataProvider(dataFS, "data"), LayeredProviderConfig{
		ExternalDir: dir,
	})
	if err != nil {
		return nil, err
	}
	c, err := load(ctx, p, kind)
	if err != nil {
		return nil, err
	}
	c.Metadata["source"] = source
	return c, nil
}

func loadFromOCI(ctx context.Context, source string) (*Catalog, error) {
	ref, err := oci.ParseReference(source)
	if err != nil {
		return nil, cperrors.Wrap(cperrors.ErrCodeInvalidRequest, "invalid catalog reference", err)
	}

	dest, err := os.MkdirTemp("", "craftplan-catalog-")
	if err != nil {
		return nil, cperrors.Wrap(cperrors.ErrCodeInternal, "failed to create temp dir", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dest); rmErr != nil {
			slog.Warn("failed to remove temp dir", "dir", dest, "error", rmErr)
		}
	}()

	pullCtx, cancel := context.WithTimeout(ctx, defaults.OCIPullTimeout)
	defer cancel()

	res, err := oci.Pull(pullCtx, oci.PullOptions{
		Reference: ref,
		DestDir:   dest,
	})
	if err != nil {
		return nil, cperrors.Wrap(cperrors.ErrCodeUnavailable, fmt.Sprintf("failed to pull catalog %s", ref), err)
	}

	slog.Debug("pulled catalog", "reference", ref.String(), "digest", res.Digest)
	return loadFromDir(ctx, res.Dir, source, kindOCI)
}

func loadFromConfigMap(ctx context.Context, source string) (*Catalog, error) {
	namespace, name, err := serializer.ParseConfigMapURI(source)
	if err != nil {
		return nil, cperrors.Wrap(cperrors.ErrCodeInvalidRequest, "invalid catalog ConfigMap URI", err)
	}

	c, _, err := client.GetKubeClient()
	if err != nil {
		return nil, cperrors.Wrap(cperrors.ErrCodeUnavailable, "failed to get kubernetes client", err)
	}

	readCtx, cancel := context.WithTimeout(ctx, defaults.ConfigMapReadTimeout)
	defer cancel()

	data, err := client.ReadConfigMapData(readCtx, c, namespace, name)
	if err != nil {
		return nil, cperrors.Wrap(cperrors.ErrCodeNotFound, "failed to read catalog ConfigMap", err)
	}

	files := make(map[string][]byte, 2)
	for _, key := range []string{RecipesFileName, MachinesFileName} {
		if v, ok := data[key]; ok {
			files[key] = []byte(v)
		}
	}
	return load(ctx, NewMapDataProvider(source, files), kindConfigMap)
}

func loadDocument(ctx context.Context, source string) (*Catalog, error) {
	kind := documentKind(source)
	c, err := serializer.FromFile[Catalog](ctx, source)
	if err != nil {
		loadTotal.WithLabelValues(kind, "error").Inc()
		return nil, cperrors.Wrap(cperrors.ErrCodeInvalidRequest, fmt.Sprintf("failed to load catalog %s", source), err)
	}
	if err := c.Check(header.KindCatalog); err != nil {
		return nil, cperrors.Wrap(cperrors.ErrCodeInvalidRequest, fmt.Sprintf("invalid catalog %s", source), err)
	}
	if c.Metadata == nil {
		c.Metadata = make(map[string]string)
	}
	c.Metadata["source"] = source

	if err := c.Validate(); err != nil {
		loadTotal.WithLabelValues(kind, "invalid").Inc()
		return nil, err
	}
	loadTotal.WithLabelValues(kind, "success").Inc()
	return c, nil
}

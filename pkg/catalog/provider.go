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
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mchmarny/craftplan/pkg/defaults"
	cperrors "github.com/mchmarny/craftplan/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed data/recipes.yaml data/machines.yaml
var dataFS embed.FS

const (
	// RecipesFileName is the file holding the recipe table.
	RecipesFileName = "recipes.yaml"

	// MachinesFileName is the file holding the machine table.
	MachinesFileName = "machines.yaml"

	sourceEmbedded = "embedded"
	sourceExternal = "external"
)

// DataProvider abstracts access to catalog table files so an external
// directory or a ConfigMap can stand in for the embedded defaults.
type DataProvider interface {
	// ReadFile reads a table file by name.
	ReadFile(name string) ([]byte, error)

	// Source returns a description of where a file came from.
	Source(name string) string
}

// EmbeddedDataProvider serves the tables compiled into the binary.
type EmbeddedDataProvider struct {
	fs     embed.FS
	prefix string
}

// NewEmbeddedDataProvider creates a provider from an embedded filesystem.
func NewEmbeddedDataProvider(efs embed.FS, prefix string) *EmbeddedDataProvider {
	return &EmbeddedDataProvider{
		fs:     efs,
		prefix: prefix,
	}
}

// ReadFile reads a file from the embedded filesystem.
func (p *EmbeddedDataProvider) ReadFile(name string) ([]byte, error) {
	fullPath := p.prefix + "/" + name
	slog.Debug("reading file from embedded provider", "name", name, "fullPath", fullPath)
	return p.fs.ReadFile(fullPath)
}

// Source returns "embedded" for all files.
func (p *EmbeddedDataProvider) Source(string) string {
	return sourceEmbedded
}

// MapDataProvider serves table files held in memory, such as the data keys
// of a ConfigMap.
type MapDataProvider struct {
	files  map[string][]byte
	source string
}

// NewMapDataProvider creates a provider over in-memory files.
func NewMapDataProvider(source string, files map[string][]byte) *MapDataProvider {
	return &MapDataProvider{files: files, source: source}
}

// ReadFile returns the named file or fs.ErrNotExist.
func (p *MapDataProvider) ReadFile(name string) ([]byte, error) {
	b, ok := p.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %s: %w", p.source, name, fs.ErrNotExist)
	}
	return b, nil
}

// Source returns the description given at construction.
func (p *MapDataProvider) Source(string) string {
	return p.source
}

// LayeredProviderConfig configures the layered data provider.
type LayeredProviderConfig struct {
	// ExternalDir is the path to the external data directory.
	ExternalDir string

	// MaxFileSize is the maximum allowed file size in bytes.
	// Zero means defaults.MaxCatalogFileSize.
	MaxFileSize int64

	// AllowSymlinks allows symlinks in the external directory (default: false).
	AllowSymlinks bool
}

// LayeredDataProvider overlays an external directory on top of embedded
// data. Recipes and machines from external files replace embedded entries
// with the same name and new entries are added. Raw resources are unioned.
type LayeredDataProvider struct {
	embedded    DataProvider
	externalDir string

	externalFiles map[string]bool

	mu     sync.Mutex
	merged map[string][]byte
}

// NewLayeredDataProvider creates a provider that layers external data over
// embedded. Returns an error if the directory is missing, holds neither
// table file, or contains symlinks, traversal paths or oversized files.
func NewLayeredDataProvider(embedded DataProvider, config LayeredProviderConfig) (*LayeredDataProvider, error) {
	slog.Debug("creating layered data provider",
		"external_dir", config.ExternalDir,
		"max_file_size", config.MaxFileSize,
		"allow_symlinks", config.AllowSymlinks)

	if config.MaxFileSize == 0 {
		config.MaxFileSize = defaults.MaxCatalogFileSize
	}

	info, err := os.Stat(config.ExternalDir)
	if err != nil {
		return nil, cperrors.Wrap(cperrors.ErrCodeNotFound,
			fmt.Sprintf("external data directory not found: %s", config.ExternalDir), err)
	}
	if !info.IsDir() {
		return nil, cperrors.New(cperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("external data path is not a directory: %s", config.ExternalDir))
	}

	externalFiles := make(map[string]bool)
	err = filepath.WalkDir(config.ExternalDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		relPath, relErr := filepath.Rel(config.ExternalDir, path)
		if relErr != nil {
			return fmt.Errorf("failed to get relative path: %w", relErr)
		}

		if strings.Contains(relPath, "..") {
			return cperrors.New(cperrors.ErrCodeInvalidRequest,
				fmt.Sprintf("path traversal detected: %s", relPath))
		}

		if !config.AllowSymlinks {
			linfo, lstatErr := os.Lstat(path)
			if lstatErr != nil {
				return fmt.Errorf("failed to stat file: %w", lstatErr)
			}
			if linfo.Mode()&os.ModeSymlink != 0 {
				return cperrors.New(cperrors.ErrCodeInvalidRequest,
					fmt.Sprintf("symlinks not allowed: %s", relPath))
			}
		}

		finfo, statErr := d.Info()
		if statErr != nil {
			return fmt.Errorf("failed to get file info: %w", statErr)
		}
		if finfo.Size() > config.MaxFileSize {
			return cperrors.New(cperrors.ErrCodeInvalidRequest,
				fmt.Sprintf("file too large (%d bytes, max %d): %s", finfo.Size(), config.MaxFileSize, relPath))
		}

		externalFiles[filepath.ToSlash(relPath)] = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !externalFiles[RecipesFileName] && !externalFiles[MachinesFileName] {
		return nil, cperrors.New(cperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("external data directory %s must contain %s or %s",
				config.ExternalDir, RecipesFileName, MachinesFileName))
	}

	slog.Info("layered data provider initialized",
		"external_dir", config.ExternalDir,
		"external_files", len(externalFiles))

	return &LayeredDataProvider{
		embedded:      embedded,
		externalDir:   config.ExternalDir,
		externalFiles: externalFiles,
		merged:        make(map[string][]byte),
	}, nil
}

// ReadFile returns the merged table for recipe and machine files. Other
// files come from the external directory when present.
func (p *LayeredDataProvider) ReadFile(name string) ([]byte, error) {
	if !p.externalFiles[name] {
		return p.embedded.ReadFile(name)
	}

	external, err := os.ReadFile(filepath.Join(p.externalDir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read external file %s: %w", name, err)
	}

	switch name {
	case RecipesFileName, MachinesFileName:
	default:
		return external, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := p.merged[name]; ok {
		return b, nil
	}

	base, err := p.embedded.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded %s: %w", name, err)
	}

	var merged any
	if name == RecipesFileName {
		merged, err = mergeRecipeTables(base, external)
	} else {
		merged, err = mergeMachineTables(base, external)
	}
	if err != nil {
		return nil, err
	}

	b, err := yaml.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize merged %s: %w", name, err)
	}
	p.merged[name] = b
	return b, nil
}

// Source reports whether a file is merged from external data.
func (p *LayeredDataProvider) Source(name string) string {
	if p.externalFiles[name] {
		return "merged (" + sourceEmbedded + " + " + sourceExternal + ": " + p.externalDir + ")"
	}
	return sourceEmbedded
}

func mergeRecipeTables(base, overlay []byte) (*RecipeTable, error) {
	var b, o RecipeTable
	if err := yaml.Unmarshal(base, &b); err != nil {
		return nil, fmt.Errorf("failed to parse embedded recipes: %w", err)
	}
	if err := yaml.Unmarshal(overlay, &o); err != nil {
		return nil, fmt.Errorf("failed to parse external recipes: %w", err)
	}
	if o.APIVersion != "" && o.APIVersion != b.APIVersion {
		slog.Warn("external recipe table has different API version",
			"embedded", b.APIVersion, "external", o.APIVersion)
	}

	if b.Recipes == nil {
		b.Recipes = make(map[string]Recipe, len(o.Recipes))
	}
	for name, r := range o.Recipes {
		if _, found := b.Recipes[name]; found {
			slog.Debug("recipe overridden from external", "item", name)
		}
		b.Recipes[name] = r
	}
	b.Resources = unionStrings(b.Resources, o.Resources)

	slog.Info("merged recipe tables",
		"external_recipes", len(o.Recipes),
		"merged_recipes", len(b.Recipes))
	return &b, nil
}

func mergeMachineTables(base, overlay []byte) (*MachineTable, error) {
	var b, o MachineTable
	if err := yaml.Unmarshal(base, &b); err != nil {
		return nil, fmt.Errorf("failed to parse embedded machines: %w", err)
	}
	if err := yaml.Unmarshal(overlay, &o); err != nil {
		return nil, fmt.Errorf("failed to parse external machines: %w", err)
	}

	if b.Machines == nil {
		b.Machines = make(map[string]Machine, len(o.Machines))
	}
	for name, m := range o.Machines {
		b.Machines[name] = m
	}

	slog.Info("merged machine tables",
		"external_machines", len(o.Machines),
		"merged_machines", len(b.Machines))
	return &b, nil
}

var (
	providerMu         sync.RWMutex
	globalDataProvider DataProvider
	providerGeneration int
)

// SetDataProvider replaces the process-wide data provider used by Default.
// It invalidates the cached default catalog.
func SetDataProvider(provider DataProvider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	globalDataProvider = provider
	providerGeneration++
	slog.Info("data provider set", "generation", providerGeneration)
}

// GetDataProvider returns the process-wide data provider, defaulting to the
// embedded tables.
func GetDataProvider() DataProvider {
	providerMu.Lock()
	defer providerMu.Unlock()
	if globalDataProvider == nil {
		globalDataProvider = NewEmbeddedDataProvider(dataFS, "data")
	}
	return globalDataProvider
}

func currentGeneration() int {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return providerGeneration
}

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

package serializer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/mchmarny/craftplan/pkg/defaults"
	"github.com/mchmarny/craftplan/pkg/k8s/client"
	"gopkg.in/yaml.v3"
)

// FormatFromPath determines the format from a file extension:
// .json is JSON, .yaml and .yml are YAML, .table and .txt are table.
// Unknown extensions default to JSON. Matching is case-insensitive and URL
// query strings are ignored.
func FormatFromPath(filePath string) Format {
	p := strings.ToLower(filePath)
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	switch path.Ext(p) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".table", ".txt":
		return FormatTable
	default:
		slog.Debug("unknown file extension, defaulting to JSON", "path", filePath)
		return FormatJSON
	}
}

// Reader decodes JSON or YAML from an io.Reader. Table format is write-only.
//
// Close must be called when the Reader was created with NewFileReader.
type Reader struct {
	format Format
	input  io.Reader
	closer io.Closer
}

// NewReader creates a Reader over input. If input implements io.Closer it is
// closed by Reader.Close.
func NewReader(format Format, input io.Reader) (*Reader, error) {
	if format.IsUnknown() {
		return nil, fmt.Errorf("unknown format: %s", format)
	}
	if format == FormatTable {
		return nil, fmt.Errorf("table format does not support deserialization")
	}

	r := &Reader{
		format: format,
		input:  input,
	}
	if closer, ok := input.(io.Closer); ok {
		r.closer = closer
	}
	return r, nil
}

// NewFileReader creates a Reader for a local file or an http(s) URL. Remote
// content is fetched into memory, bounded by defaults.MaxCatalogFileSize.
func NewFileReader(ctx context.Context, format Format, filePath string) (*Reader, error) {
	if strings.HasPrefix(filePath, "http://") || strings.HasPrefix(filePath, "https://") {
		data, err := NewHttpReader().ReadWithContext(ctx, filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to download remote file: %w", err)
		}
		return NewReader(format, bytes.NewReader(data))
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	if info.Size() > defaults.MaxCatalogFileSize {
		return nil, fmt.Errorf("file too large (%d bytes, max %d): %s", info.Size(), defaults.MaxCatalogFileSize, filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	r, err := NewReader(format, file)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return r, nil
}

// Deserialize decodes the input into v, which must be a pointer.
func (r *Reader) Deserialize(v any) error {
	if r == nil {
		return fmt.Errorf("reader is nil")
	}
	if r.input == nil {
		return fmt.Errorf("input source is nil")
	}

	switch r.format {
	case FormatJSON:
		if err := json.NewDecoder(r.input).Decode(v); err != nil {
			return fmt.Errorf("failed to decode JSON: %w", err)
		}
		return nil
	case FormatYAML:
		if err := yaml.NewDecoder(r.input).Decode(v); err != nil {
			return fmt.Errorf("failed to decode YAML: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format for deserialization: %s", r.format)
	}
}

// Close releases the input if it is closeable. Safe to call more than once.
func (r *Reader) Close() error {
	if r == nil || r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

// FromFile loads a value of type T from a local file, an http(s) URL, or a
// ConfigMap URI (cm://namespace/name). File and URL formats come from the
// extension; ConfigMaps are read from the data key named by their
// "document" entry.
func FromFile[T any](ctx context.Context, path string) (*T, error) {
	if strings.HasPrefix(path, ConfigMapURIScheme) {
		namespace, name, err := ParseConfigMapURI(path)
		if err != nil {
			return nil, err
		}
		return FromConfigMap[T](ctx, namespace, name, "")
	}

	format := FormatFromPath(path)
	r, err := NewFileReader(ctx, format, path)
	if err != nil {
		return nil, fmt.Errorf("failed to create reader for %q: %w", path, err)
	}
	defer func() {
		if closeErr := r.Close(); closeErr != nil {
			slog.Warn("failed to close reader", "error", closeErr)
		}
	}()

	var v T
	if err := r.Deserialize(&v); err != nil {
		return nil, fmt.Errorf("failed to deserialize %q: %w", path, err)
	}

	slog.Debug("loaded document", "path", path, "format", format)
	return &v, nil
}

// FromConfigMap decodes the value stored under key in a ConfigMap. An empty
// key selects the single document written by ConfigMapWriter.
func FromConfigMap[T any](ctx context.Context, namespace, name, key string) (*T, error) {
	c, _, err := client.GetKubeClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get kubernetes client: %w", err)
	}

	readCtx, cancel := context.WithTimeout(ctx, defaults.ConfigMapReadTimeout)
	defer cancel()

	data, err := client.ReadConfigMapData(readCtx, c, namespace, name)
	if err != nil {
		return nil, err
	}

	if key == "" {
		key = data[configMapDocumentKey]
	}
	content, ok := data[key]
	if !ok || key == "" {
		return nil, fmt.Errorf("ConfigMap %s/%s has no document data", namespace, name)
	}

	r, err := NewReader(FormatFromPath(key), strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to create reader for ConfigMap data: %w", err)
	}

	var v T
	if err := r.Deserialize(&v); err != nil {
		return nil, fmt.Errorf("failed to deserialize ConfigMap %s/%s key %s: %w", namespace, name, key, err)
	}
	return &v, nil
}

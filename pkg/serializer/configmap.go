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
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mchmarny/craftplan/pkg/defaults"
	"github.com/mchmarny/craftplan/pkg/header"
	"github.com/mchmarny/craftplan/pkg/k8s/client"
)

// configMapDocumentKey names the data key holding the serialized document.
const configMapDocumentKey = "document"

// ConfigMapWriter writes serialized data to a Kubernetes ConfigMap.
// The ConfigMap is created if it doesn't exist, or updated if it does.
type ConfigMapWriter struct {
	namespace string
	name      string
	format    Format
}

// NewConfigMapWriter creates a writer for namespace/name. An unknown format
// falls back to JSON.
func NewConfigMapWriter(namespace, name string, format Format) *ConfigMapWriter {
	if format.IsUnknown() {
		slog.Warn("unknown format, defaulting to JSON", "format", format)
		format = FormatJSON
	}
	return &ConfigMapWriter{
		namespace: namespace,
		name:      name,
		format:    format,
	}
}

// Serialize applies a ConfigMap holding v. The data has:
//   - <kind>.<ext>: the serialized document
//   - document: the name of that key
//   - format: the format used
//   - timestamp: the document timestamp, or now
func (w *ConfigMapWriter) Serialize(ctx context.Context, v any) error {
	writeCtx, cancel := context.WithTimeout(ctx, defaults.ConfigMapWriteTimeout)
	defer cancel()

	c, config, err := client.GetKubeClient()
	if err != nil {
		return fmt.Errorf("failed to get kubernetes client: %w", err)
	}

	content, err := marshal(w.format, v)
	if err != nil {
		return err
	}

	kind, version, timestamp := "document", "unknown", time.Now().UTC().Format(time.RFC3339)
	if h, ok := v.(interface {
		GetKind() header.Kind
		GetMetadata() map[string]string
	}); ok {
		if k := h.GetKind().String(); k != "" {
			kind = strings.ToLower(k)
		}
		if val, exists := h.GetMetadata()["version"]; exists {
			version = val
		}
		if ts, exists := h.GetMetadata()["timestamp"]; exists {
			timestamp = ts
		}
	}

	ext := string(w.format)
	if w.format == FormatTable {
		ext = "txt"
	}
	dataKey := fmt.Sprintf("%s.%s", kind, ext)

	slog.Info("applying ConfigMap",
		"namespace", w.namespace,
		"name", w.name,
		"key", dataKey,
		"auth_method", client.AuthMethod(config))

	return client.ApplyConfigMap(writeCtx, c, w.namespace, w.name,
		map[string]string{
			"app.kubernetes.io/name":      "craftplan",
			"app.kubernetes.io/component": kind,
			"app.kubernetes.io/version":   version,
		},
		map[string]string{
			dataKey:              string(content),
			configMapDocumentKey: dataKey,
			"format":             string(w.format),
			"timestamp":          timestamp,
		})
}

// Close is a no-op; ConfigMapWriter holds no resources.
func (w *ConfigMapWriter) Close() error {
	return nil
}

// ParseConfigMapURI splits cm://namespace/name into its parts.
func ParseConfigMapURI(uri string) (namespace, name string, err error) {
	if !strings.HasPrefix(uri, ConfigMapURIScheme) {
		return "", "", fmt.Errorf("invalid ConfigMap URI: must start with %s", ConfigMapURIScheme)
	}

	parts := strings.SplitN(strings.TrimPrefix(uri, ConfigMapURIScheme), "/", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid ConfigMap URI format: expected %snamespace/name, got %s", ConfigMapURIScheme, uri)
	}

	namespace = strings.TrimSpace(parts[0])
	name = strings.TrimSpace(parts[1])

	if namespace == "" {
		return "", "", fmt.Errorf("invalid ConfigMap URI: namespace cannot be empty")
	}
	if name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("invalid ConfigMap URI: invalid name %q", name)
	}
	return namespace, name, nil
}

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

// Package serializer encodes and decodes craftplan documents.
//
// # Formats
//
//   - JSON: API responses and programmatic consumption
//   - YAML: catalog files and version control (gopkg.in/yaml.v3)
//   - Table: terminal output, write-only
//
// Values implementing Tabular render their own columns in table format;
// anything else is flattened into FIELD/VALUE rows.
//
// # Destinations and sources
//
//	w, err := serializer.NewFileWriterOrStdout(serializer.FormatYAML, "cm://games/plan")
//	if err != nil {
//	    return err
//	}
//	err = w.Serialize(ctx, plan)
//
//	cat, err := serializer.FromFile[catalog.Catalog](ctx, "https://example.com/catalog.yaml")
//
// Paths may be local files, http(s) URLs, or ConfigMap URIs of the form
// cm://namespace/name. ConfigMap writes use server-side apply.
//
// For HTTP handlers:
//
//	serializer.RespondJSON(w, http.StatusOK, plan)
//
// RespondJSON buffers the encoding so an error never produces a partial response.
package serializer

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
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mchmarny/craftplan/pkg/catalog"
	"github.com/mchmarny/craftplan/pkg/defaults"
	cperrors "github.com/mchmarny/craftplan/pkg/errors"
	"github.com/mchmarny/craftplan/pkg/server"
	"github.com/mchmarny/craftplan/pkg/serializer"
)

var (
	// planCacheTTL can be overridden for testing.
	planCacheTTL    = defaults.PlanCacheTTL
	catalogCacheTTL = defaults.CatalogCacheTTL
)

// HandlePlan serves plan requests. GET takes item, count and repeated tier
// query parameters (tier=assembler:1); POST takes a JSON or YAML PlanRequest.
func (b *Builder) HandlePlan(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), defaults.PlanHandlerTimeout)
	defer cancel()

	var req *PlanRequest
	var err error

	switch r.Method {
	case http.MethodGet:
		req, err = ParsePlanRequestFromQuery(r)
	case http.MethodPost:
		req, err = ParsePlanRequestFromBody(http.MaxBytesReader(w, r.Body, defaults.MaxRequestBodySize),
			r.Header.Get("Content-Type"))
		defer func() {
			if r.Body != nil {
				r.Body.Close()
			}
		}()
	default:
		w.Header().Set("Allow", "GET, POST")
		server.WriteError(w, r, http.StatusMethodNotAllowed, cperrors.ErrCodeMethodNotAllowed,
			"Method not allowed", false, map[string]any{
				"method":  r.Method,
				"allowed": []string{"GET", "POST"},
			})
		return
	}

	if err != nil {
		server.WriteErrorFromErr(w, r, err, "Invalid plan request", nil)
		return
	}

	obj := req.Objective()
	if obj.Item == "" {
		server.WriteError(w, r, http.StatusBadRequest, cperrors.ErrCodeInvalidRequest,
			"Item is required", false, nil)
		return
	}

	slog.Debug("plan request",
		"item", obj.Item,
		"count", obj.Count,
		"settings", req.Settings.String())

	plan, err := b.Build(ctx, obj, req.Settings)
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "Failed to build plan", nil)
		return
	}

	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(planCacheTTL.Seconds())))
	serializer.RespondJSON(w, http.StatusOK, plan)
}

// HandleCatalog serves the catalog the builder plans against.
func (b *Builder) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		server.WriteError(w, r, http.StatusMethodNotAllowed, cperrors.ErrCodeMethodNotAllowed,
			"Method not allowed", false, map[string]any{
				"method":  r.Method,
				"allowed": []string{http.MethodGet},
			})
		return
	}

	cat := b.Catalog
	if cat == nil {
		var err error
		if cat, err = catalog.Default(r.Context()); err != nil {
			server.WriteErrorFromErr(w, r, err, "Failed to load catalog", nil)
			return
		}
	}

	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(catalogCacheTTL.Seconds())))
	serializer.RespondJSON(w, http.StatusOK, cat)
}

// ParsePlanRequestFromQuery reads item, count and tier query parameters.
// A missing count means one.
func ParsePlanRequestFromQuery(r *http.Request) (*PlanRequest, error) {
	q := r.URL.Query()

	req := &PlanRequest{Item: strings.TrimSpace(q.Get("item"))}

	if raw := strings.TrimSpace(q.Get("count")); raw != "" {
		count, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, cperrors.Wrap(cperrors.ErrCodeInvalidRequest,
				fmt.Sprintf("invalid count %q", raw), err)
		}
		req.Count = &count
	}

	settings, err := ParseSettings(q["tier"])
	if err != nil {
		return nil, err
	}
	req.Settings = settings

	return req, nil
}

// ParsePlanRequestFromBody decodes a PlanRequest. YAML content types are
// parsed as YAML; everything else as JSON.
func ParsePlanRequestFromBody(body io.Reader, contentType string) (*PlanRequest, error) {
	if body == nil {
		return nil, cperrors.New(cperrors.ErrCodeInvalidRequest, "request body cannot be nil")
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, cperrors.Wrap(cperrors.ErrCodeInvalidRequest, "failed to read request body", err)
	}
	if len(data) == 0 {
		return nil, cperrors.New(cperrors.ErrCodeInvalidRequest, "request body is empty")
	}

	ct := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(ct, ";"); idx != -1 {
		ct = strings.TrimSpace(ct[:idx])
	}

	var req PlanRequest
	switch ct {
	case "application/x-yaml", "application/yaml", "text/yaml":
		if err := yaml.Unmarshal(data, &req); err != nil {
			return nil, cperrors.Wrap(cperrors.ErrCodeInvalidRequest, "failed to parse YAML body", err)
		}
	default:
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, cperrors.Wrap(cperrors.ErrCodeInvalidRequest, "failed to parse JSON body", err)
		}
	}

	if req.Settings == nil {
		req.Settings = Settings{}
	}
	return &req, nil
}

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

package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	cperrors "github.com/mchmarny/craftplan/pkg/errors"
)

func planStub(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestNew(t *testing.T) {
	s := New(
		WithName("craftpland"),
		WithVersion("1.2.3"),
		WithHandler(map[string]http.HandlerFunc{"/v1/plan": planStub}),
	)

	if s.config.Name != "craftpland" || s.config.Version != "1.2.3" {
		t.Errorf("identity = %s/%s", s.config.Name, s.config.Version)
	}
	if _, ok := s.config.Handlers["/"]; !ok {
		t.Error("expected default root handler")
	}
	if s.httpServer.ErrorLog == nil {
		t.Error("expected http.Server errors to go to the structured logger")
	}
	if s.Handler() == nil {
		t.Error("expected routed handler")
	}
	if got := s.routes(); !slices.Equal(got, []string{"/", "/v1/plan"}) {
		t.Errorf("routes() = %v", got)
	}
}

func TestWithHandler_Merges(t *testing.T) {
	s := New(
		WithHandler(map[string]http.HandlerFunc{"/v1/plan": planStub}),
		WithHandler(map[string]http.HandlerFunc{"/v1/catalog": planStub}),
	)
	for _, path := range []string{"/v1/plan", "/v1/catalog"} {
		if _, ok := s.config.Handlers[path]; !ok {
			t.Errorf("expected %s to be registered", path)
		}
	}
}

func TestWithConfig(t *testing.T) {
	cfg := NewConfig()
	cfg.Port = 9090
	cfg.Compression = false

	s := New(WithConfig(cfg), WithName("after-config"))
	if s.config != cfg {
		t.Fatal("expected the provided config to be used")
	}
	if s.config.Name != "after-config" {
		t.Errorf("options after WithConfig modify it, got name %q", s.config.Name)
	}
	if !strings.HasSuffix(s.httpServer.Addr, ":9090") {
		t.Errorf("Addr = %q", s.httpServer.Addr)
	}

	if s := New(WithConfig(nil)); s.config == nil {
		t.Error("nil config keeps the defaults")
	}
}

func TestSystemEndpoints(t *testing.T) {
	s := New(WithHandler(map[string]http.HandlerFunc{"/v1/plan": planStub}))
	h := s.Handler()

	tests := []struct {
		name   string
		method string
		path   string
		ready  bool
		status int
		code   cperrors.ErrorCode
	}{
		{"health", http.MethodGet, "/health", false, http.StatusOK, ""},
		{"health head", http.MethodHead, "/health", false, http.StatusOK, ""},
		{"health post", http.MethodPost, "/health", false, http.StatusMethodNotAllowed, cperrors.ErrCodeMethodNotAllowed},
		{"not ready", http.MethodGet, "/ready", false, http.StatusServiceUnavailable, ""},
		{"ready", http.MethodGet, "/ready", true, http.StatusOK, ""},
		{"ready delete", http.MethodDelete, "/ready", true, http.StatusMethodNotAllowed, cperrors.ErrCodeMethodNotAllowed},
		{"metrics", http.MethodGet, "/metrics", false, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.setReady(tt.ready)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d; body: %s", w.Code, tt.status, w.Body.String())
			}
			if tt.code == "" {
				return
			}
			if got := w.Header().Get("Allow"); got != "GET, HEAD" {
				t.Errorf("Allow = %q", got)
			}
			var er ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
				t.Fatalf("invalid error body: %v", err)
			}
			if er.Code != string(tt.code) {
				t.Errorf("code = %s, want %s", er.Code, tt.code)
			}
		})
	}
}

func TestMetricsRecordRoutes(t *testing.T) {
	s := New(WithHandler(map[string]http.HandlerFunc{"/v1/plan": planStub}))
	h := s.Handler()

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/plan?item=gear", nil))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()

	if !strings.Contains(body, `craftplan_http_requests_total{method="GET",path="/v1/plan",status="200"}`) {
		t.Error("expected a request counter for /v1/plan")
	}
}

func TestRouteLabel(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/", "/"},
		{"/v1/plan", "/v1/plan"},
		{"/v1/session", "/v1/session"},
		{"/wp-admin/setup.php", "other"},
		{"/favicon.ico", "other"},
	}
	for _, tt := range tests {
		if got := routeLabel(tt.path); got != tt.want {
			t.Errorf("routeLabel(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestDefaultRootHandler(t *testing.T) {
	s := New(
		WithName("craftpland"),
		WithVersion("1.2.3"),
		WithHandler(map[string]http.HandlerFunc{
			"/v1/plan":    planStub,
			"/v1/catalog": planStub,
		}),
	)
	s.setReady(true)
	h := s.Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Name    string   `json:"name"`
		Version string   `json:"version"`
		Ready   bool     `json:"ready"`
		Routes  []string `json:"routes"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if resp.Name != "craftpland" || resp.Version != "1.2.3" || !resp.Ready {
		t.Errorf("unexpected root response: %+v", resp)
	}
	want := []string{"/", "/v1/catalog", "/v1/plan", "/health", "/ready", "/metrics"}
	if !slices.Equal(resp.Routes, want) {
		t.Errorf("routes = %v, want %v", resp.Routes, want)
	}

	t.Run("unknown path", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v2/plan", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
		if !strings.Contains(w.Body.String(), string(cperrors.ErrCodeNotFound)) {
			t.Errorf("expected NOT_FOUND code: %s", w.Body.String())
		}
	})

	t.Run("post", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", w.Code)
		}
	})
}

func TestCustomRootHandlerNotOverridden(t *testing.T) {
	s := New(WithHandler(map[string]http.HandlerFunc{
		"/": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "craftplan")
		},
	}))

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Body.String() != "craftplan" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestStartAndShutdown(t *testing.T) {
	cfg := NewConfig()
	cfg.Address = "127.0.0.1"
	cfg.Port = 0
	cfg.ShutdownTimeout = 2 * time.Second
	s := New(WithConfig(cfg))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		s.mu.RLock()
		ready := s.ready
		s.mu.RUnlock()
		if ready {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("server did not become ready")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() = %v, want nil after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ready {
		t.Error("server still ready after shutdown")
	}
}

func TestStart_ListenError(t *testing.T) {
	cfg := NewConfig()
	cfg.Address = "256.0.0.1"
	s := New(WithConfig(cfg))

	if err := s.Start(context.Background()); err == nil {
		t.Error("expected listen error for an invalid address")
	}
}

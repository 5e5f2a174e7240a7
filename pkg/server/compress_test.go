package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"golang.org/x/time/rate"
)

func newCompressionTestServer(enabled bool) *Server {
	cfg := NewConfig()
	cfg.Compression = enabled
	return &Server{
		config:      cfg,
		rateLimiter: rate.NewLimiter(100, 200),
	}
}

func TestCompressionMiddleware_EncodesBrotli(t *testing.T) {
	s := newCompressionTestServer(true)
	body := strings.Repeat(`{"item":"gear","machine":"assembler"}`, 50)

	handler := s.compressionMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/plan", nil)
	req.Header.Set("Accept-Encoding", "gzip, br")
	rec := httptest.NewRecorder()

	handler(rec, req)

	if got := rec.Header().Get("Content-Encoding"); got != "br" {
		t.Fatalf("expected Content-Encoding br, got %q", got)
	}
	if got := rec.Header().Get("Vary"); got != "Accept-Encoding" {
		t.Errorf("expected Vary Accept-Encoding, got %q", got)
	}
	if rec.Body.Len() >= len(body) {
		t.Errorf("expected compressed body smaller than %d, got %d", len(body), rec.Body.Len())
	}

	decoded, err := io.ReadAll(brotli.NewReader(rec.Body))
	if err != nil {
		t.Fatalf("failed to decode brotli body: %v", err)
	}
	if string(decoded) != body {
		t.Errorf("decoded body mismatch")
	}
}

func TestCompressionMiddleware_Passthrough(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		headers map[string]string
	}{
		{"no accept-encoding", true, nil},
		{"gzip only", true, map[string]string{"Accept-Encoding": "gzip"}},
		{"br refused", true, map[string]string{"Accept-Encoding": "br;q=0, gzip"}},
		{"upgrade request", true, map[string]string{"Accept-Encoding": "br", "Upgrade": "websocket"}},
		{"disabled", false, map[string]string{"Accept-Encoding": "br"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newCompressionTestServer(tt.enabled)
			handler := s.compressionMiddleware(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("plain"))
			})

			req := httptest.NewRequest(http.MethodGet, "/v1/plan", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()

			handler(rec, req)

			if got := rec.Header().Get("Content-Encoding"); got != "" {
				t.Errorf("expected no Content-Encoding, got %q", got)
			}
			if rec.Body.String() != "plain" {
				t.Errorf("expected plain body, got %q", rec.Body.String())
			}
		})
	}
}

func TestCompressionMiddleware_EmptyBody(t *testing.T) {
	s := newCompressionTestServer(true)
	handler := s.compressionMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Accept-Encoding", "br")
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("expected empty body, got %d bytes", rec.Body.Len())
	}
}

func TestAcceptsBrotli(t *testing.T) {
	tests := []struct {
		header string
		want   bool
	}{
		{"", false},
		{"br", true},
		{"BR", true},
		{"gzip, deflate, br", true},
		{"br;q=0.5", true},
		{"br;q=0", false},
		{"br; q=0.0", false},
		{"brotli", false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Accept-Encoding", tt.header)
			if got := acceptsBrotli(req); got != tt.want {
				t.Errorf("acceptsBrotli(%q) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}
}

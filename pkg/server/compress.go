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
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

const encodingBrotli = "br"

// brotliResponseWriter compresses the body with brotli. The encoder is
// created on the first body write so empty responses stay empty.
type brotliResponseWriter struct {
	http.ResponseWriter
	bw *brotli.Writer
}

func (w *brotliResponseWriter) WriteHeader(statusCode int) {
	w.Header().Del("Content-Length")
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *brotliResponseWriter) Write(b []byte) (int, error) {
	if w.bw == nil {
		w.Header().Del("Content-Length")
		w.bw = brotli.NewWriterLevel(w.ResponseWriter, brotli.DefaultCompression)
	}
	return w.bw.Write(b)
}

func (w *brotliResponseWriter) Flush() {
	if w.bw != nil {
		if err := w.bw.Flush(); err != nil {
			slog.Debug("brotli flush failed", "error", err)
		}
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *brotliResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}

func (w *brotliResponseWriter) Close() error {
	if w.bw == nil {
		return nil
	}
	return w.bw.Close()
}

// acceptsBrotli reports whether the Accept-Encoding header lists br with a
// non-zero quality.
func acceptsBrotli(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(name), encodingBrotli) {
			continue
		}
		q := strings.ReplaceAll(strings.TrimSpace(params), " ", "")
		return q != "q=0" && q != "q=0.0" && q != "q=0.00" && q != "q=0.000"
	}
	return false
}

// compressionMiddleware brotli-encodes responses for clients that accept it.
// Upgrade requests pass through untouched.
func (s *Server) compressionMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.config.Compression || r.Header.Get("Upgrade") != "" || !acceptsBrotli(r) {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Content-Encoding", encodingBrotli)
		w.Header().Add("Vary", "Accept-Encoding")
		bw := &brotliResponseWriter{ResponseWriter: w}
		defer func() {
			if err := bw.Close(); err != nil {
				slog.Debug("brotli close failed", "error", err)
			}
		}()

		compressedResponses.WithLabelValues(encodingBrotli).Inc()
		next.ServeHTTP(bw, r)
	}
}

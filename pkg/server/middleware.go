package server

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	cperrors "github.com/mchmarny/craftplan/pkg/errors"
)

type middleware func(http.HandlerFunc) http.HandlerFunc

// chain wraps h so that the first middleware runs first.
func chain(h http.HandlerFunc, mws ...middleware) http.HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// withMiddleware wraps an API handler. Recovery sits outside the rate
// limiter so a panicking request still spends its token.
func (s *Server) withMiddleware(handler http.HandlerFunc) http.HandlerFunc {
	return chain(handler,
		s.metricsMiddleware,
		s.versionMiddleware,
		s.requestIDMiddleware,
		s.panicRecoveryMiddleware,
		s.rateLimitMiddleware,
		s.compressionMiddleware,
		s.loggingMiddleware,
	)
}

func (s *Server) versionMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		version := negotiateAPIVersion(r)
		SetAPIVersionHeader(w, version)
		ctx := context.WithValue(r.Context(), contextKeyAPIVersion, version)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// requestIDFrom returns the client's X-Request-Id when it is a UUID and a
// new one otherwise.
func requestIDFrom(r *http.Request) string {
	if id := r.Header.Get(HeaderRequestID); id != "" {
		if _, err := uuid.Parse(id); err == nil {
			return id
		}
	}
	return uuid.New().String()
}

func (s *Server) requestIDMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := requestIDFrom(r)
		w.Header().Set(HeaderRequestID, id)
		ctx := context.WithValue(r.Context(), contextKeyRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// retryAfter is the whole number of seconds until the limiter refills one
// token, at least 1.
func (s *Server) retryAfter() int {
	if s.config.RateLimit <= 0 {
		return 1
	}
	return max(1, int(math.Ceil(1/float64(s.config.RateLimit))))
}

func (s *Server) rateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.rateLimiter.Allow() {
			rateLimitRejects.Inc()
			wait := s.retryAfter()
			w.Header().Set("Retry-After", strconv.Itoa(wait))
			WriteError(w, r, http.StatusTooManyRequests, cperrors.ErrCodeRateLimitExceeded,
				"Rate limit exceeded", true, map[string]any{
					"limit":             float64(s.config.RateLimit),
					"burst":             s.config.RateLimitBurst,
					"retryAfterSeconds": wait,
				})
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(int(s.config.RateLimit)))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(s.rateLimiter.Tokens())))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Second).Unix(), 10))

		next.ServeHTTP(w, r)
	}
}

// panicRecoveryMiddleware turns a handler panic into an INTERNAL error
// response. When the handler already started its response, or hijacked the
// connection for a WebSocket session, the panic is only logged.
func (s *Server) panicRecoveryMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rw := newResponseWriter(w)
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			panicRecoveries.Inc()
			slog.Error("panic recovered",
				"error", fmt.Sprint(rec),
				"requestID", RequestID(r.Context()),
				"path", r.URL.Path,
				"method", r.Method,
				"responseStarted", rw.written)
			if rw.written {
				return
			}
			// compression set its header before the handler ran
			rw.Header().Del("Content-Encoding")
			WriteError(rw, r, http.StatusInternalServerError, cperrors.ErrCodeInternal,
				"Internal server error", true, nil)
		}()
		next.ServeHTTP(rw, r)
	}
}

func (s *Server) loggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := newResponseWriter(w)

		next.ServeHTTP(rw, r)

		level := slog.LevelDebug
		if rw.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		slog.Log(r.Context(), level, "request completed",
			"requestID", RequestID(r.Context()),
			"apiVersion", APIVersion(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.Status(),
			"upgraded", rw.Status() == http.StatusSwitchingProtocols,
			"duration", time.Since(start).String())
	}
}

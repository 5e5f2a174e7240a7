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

// Package server provides the HTTP server shared by craftpland endpoints.
//
// The server owns the cross-cutting concerns and leaves routes to callers,
// which register handlers by path:
//
//   - Request ID tracking via the X-Request-Id header
//   - Rate limiting using a token bucket (golang.org/x/time/rate)
//   - Panic recovery
//   - API version negotiation through the Accept header
//   - Brotli response compression for clients sending Accept-Encoding: br
//   - Prometheus metrics on /metrics
//   - Health and readiness probes on /health and /ready
//   - Graceful shutdown on SIGINT/SIGTERM with systemd notification
//
// # Usage
//
//	s := server.New(
//	    server.WithName("craftpland"),
//	    server.WithVersion(version),
//	    server.WithHandler(map[string]http.HandlerFunc{
//	        "/v1/plan": planner.HandlePlan,
//	    }),
//	)
//	if err := s.Run(ctx); err != nil {
//	    return err
//	}
//
// The listen port comes from the PORT environment variable (default 8080).
// SHUTDOWN_TIMEOUT_SECONDS overrides the graceful shutdown window.
//
// # Rate Limiting
//
// Response headers report the limiter state:
//
//	X-RateLimit-Limit: requests allowed per second
//	X-RateLimit-Remaining: tokens left in the bucket
//	X-RateLimit-Reset: Unix timestamp when the bucket refills
//
// Rejected requests get 429 with a Retry-After header.
//
// # Error Handling
//
// Errors share one JSON shape:
//
//	{
//	  "code": "UNKNOWN_ITEM",
//	  "message": "unknown item: widget",
//	  "details": {"item": "widget"},
//	  "requestId": "550e8400-e29b-41d4-a716-446655440000",
//	  "timestamp": "2025-12-22T12:00:00Z",
//	  "retryable": false
//	}
//
// WriteErrorFromErr maps structured error codes to HTTP status:
//
//   - INVALID_REQUEST: 400
//   - UNAUTHORIZED: 401
//   - NOT_FOUND, UNKNOWN_ITEM, UNKNOWN_MACHINE: 404
//   - METHOD_NOT_ALLOWED: 405
//   - RATE_LIMIT_EXCEEDED: 429
//   - SERVICE_UNAVAILABLE: 503
//   - TIMEOUT: 504
//   - anything else: 500
package server

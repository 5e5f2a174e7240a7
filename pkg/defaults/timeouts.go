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

package defaults

import "time"

// Planning limits for recipe expansion.
const (
	// MaxExpansionDepth bounds recursion depth of a single expansion.
	MaxExpansionDepth = 64

	// MaxExpansionRecords bounds the number of records a single expansion may emit.
	MaxExpansionRecords = 100_000

	// MaxQuantity bounds the count and machine demand of any single record,
	// keeping machine totals over MaxExpansionRecords records within int64.
	MaxQuantity = 1e12

	// MaxCatalogFileSize is the largest catalog file accepted from disk or network.
	MaxCatalogFileSize = 10 << 20

	// MaxRequestBodySize is the largest plan request body accepted.
	MaxRequestBodySize = 1 << 20
)

// Handler timeouts for HTTP request processing.
const (
	// PlanHandlerTimeout is the timeout for plan requests.
	PlanHandlerTimeout = 30 * time.Second

	// PlanBuildTimeout is the internal timeout for plan building.
	// Should be less than PlanHandlerTimeout to allow error handling.
	PlanBuildTimeout = 25 * time.Second

	// CatalogCacheTTL is the cache duration advertised for catalog responses.
	CatalogCacheTTL = 10 * time.Minute

	// PlanCacheTTL is the default lifetime of cached plans.
	PlanCacheTTL = 10 * time.Minute

	// PlanCacheCleanupInterval is how often expired in-memory plans are purged.
	PlanCacheCleanupInterval = 15 * time.Minute

	// CacheOperationTimeout bounds a single cache read or write.
	CacheOperationTimeout = 2 * time.Second
)

// Session timeouts for live planning connections.
const (
	// SessionWriteTimeout is the deadline for one websocket write.
	SessionWriteTimeout = 10 * time.Second

	// SessionPongTimeout is how long a session waits for a pong.
	SessionPongTimeout = 60 * time.Second

	// SessionPingInterval must be shorter than SessionPongTimeout.
	SessionPingInterval = 50 * time.Second

	// SessionMaxMessageSize is the largest client message accepted.
	SessionMaxMessageSize = 64 << 10
)

// Server timeouts for HTTP server configuration.
const (
	// ServerReadTimeout is the maximum duration for reading request headers.
	ServerReadTimeout = 10 * time.Second

	// ServerReadHeaderTimeout prevents slow header attacks.
	ServerReadHeaderTimeout = 5 * time.Second

	// ServerWriteTimeout is the maximum duration for writing a response.
	ServerWriteTimeout = 30 * time.Second

	// ServerIdleTimeout is the maximum duration to wait for the next request.
	ServerIdleTimeout = 120 * time.Second

	// ServerShutdownTimeout is the maximum duration for graceful shutdown.
	ServerShutdownTimeout = 30 * time.Second
)

// HTTP client timeouts for outbound requests.
const (
	// HTTPClientTimeout is the default total timeout for HTTP requests.
	HTTPClientTimeout = 30 * time.Second

	// HTTPConnectTimeout is the timeout for establishing connections.
	HTTPConnectTimeout = 5 * time.Second

	// HTTPTLSHandshakeTimeout is the timeout for TLS handshake.
	HTTPTLSHandshakeTimeout = 5 * time.Second

	// HTTPResponseHeaderTimeout is the timeout for reading response headers.
	HTTPResponseHeaderTimeout = 10 * time.Second

	// HTTPIdleConnTimeout is the timeout for idle connections in the pool.
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPKeepAlive is the keep-alive duration for connections.
	HTTPKeepAlive = 30 * time.Second

	// HTTPExpectContinueTimeout is the timeout for Expect: 100-continue.
	HTTPExpectContinueTimeout = 1 * time.Second
)

// ConfigMap timeouts for Kubernetes ConfigMap operations.
const (
	// ConfigMapWriteTimeout is the timeout for writing to ConfigMaps.
	ConfigMapWriteTimeout = 30 * time.Second

	// ConfigMapReadTimeout is the timeout for reading catalog ConfigMaps.
	ConfigMapReadTimeout = 15 * time.Second
)

// OCI timeouts for registry operations.
const (
	// OCIPushTimeout is the timeout for pushing a catalog artifact.
	OCIPushTimeout = 2 * time.Minute

	// OCIPullTimeout is the timeout for pulling a catalog artifact.
	OCIPullTimeout = 2 * time.Minute
)

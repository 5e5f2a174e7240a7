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

// Package defaults provides centralized configuration constants for craftplan.
//
// This package defines timeout values, planning limits, cache durations and
// other defaults used across the codebase.
//
// # Categories
//
//   - Planning limits: recursion depth and record ceilings for expansion
//   - Handler timeouts: For HTTP request processing
//   - Server timeouts: For HTTP server configuration
//   - Kubernetes timeouts: For ConfigMap operations
//   - HTTP client timeouts: For outbound catalog downloads
//   - OCI timeouts: For catalog push and pull
//
// # Usage
//
//	import "github.com/mchmarny/craftplan/pkg/defaults"
//
//	ctx, cancel := context.WithTimeout(ctx, defaults.PlanHandlerTimeout)
//	defer cancel()
package defaults

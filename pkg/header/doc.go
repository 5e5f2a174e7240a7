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

// Package header provides common header types for craftplan documents.
//
// Catalog tables, loaded catalogs and computed plans all embed Header so
// every document carries the same Kind, APIVersion and Metadata fields:
//
//	kind: Plan
//	apiVersion: craftplan.dev/v1
//	metadata:
//	  timestamp: "2025-12-30T10:30:00Z"
//	  version: v0.3.0
//
// Decoders call Check to reject documents of the wrong kind or an
// unsupported API version. Timestamps use RFC3339 in UTC.
package header

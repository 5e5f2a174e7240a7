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

import (
	"math"
	"testing"
	"time"
)

func TestTimeoutConstants(t *testing.T) {
	tests := []struct {
		name     string
		timeout  time.Duration
		minValue time.Duration
		maxValue time.Duration
	}{
		// Handler timeouts
		{"PlanHandlerTimeout", PlanHandlerTimeout, 10 * time.Second, 60 * time.Second},
		{"PlanBuildTimeout", PlanBuildTimeout, 10 * time.Second, 30 * time.Second},
		{"CacheOperationTimeout", CacheOperationTimeout, 100 * time.Millisecond, 10 * time.Second},

		// Server timeouts
		{"ServerReadTimeout", ServerReadTimeout, 5 * time.Second, 30 * time.Second},
		{"ServerReadHeaderTimeout", ServerReadHeaderTimeout, 1 * time.Second, 10 * time.Second},
		{"ServerWriteTimeout", ServerWriteTimeout, 10 * time.Second, 60 * time.Second},
		{"ServerIdleTimeout", ServerIdleTimeout, 60 * time.Second, 300 * time.Second},
		{"ServerShutdownTimeout", ServerShutdownTimeout, 10 * time.Second, 60 * time.Second},

		// Session timeouts
		{"SessionWriteTimeout", SessionWriteTimeout, 1 * time.Second, 30 * time.Second},
		{"SessionPongTimeout", SessionPongTimeout, 10 * time.Second, 5 * time.Minute},

		// HTTP client timeouts
		{"HTTPClientTimeout", HTTPClientTimeout, 10 * time.Second, 60 * time.Second},
		{"HTTPConnectTimeout", HTTPConnectTimeout, 1 * time.Second, 15 * time.Second},

		// Kubernetes and OCI
		{"ConfigMapWriteTimeout", ConfigMapWriteTimeout, 5 * time.Second, 60 * time.Second},
		{"ConfigMapReadTimeout", ConfigMapReadTimeout, 5 * time.Second, 60 * time.Second},
		{"OCIPushTimeout", OCIPushTimeout, 30 * time.Second, 10 * time.Minute},
		{"OCIPullTimeout", OCIPullTimeout, 30 * time.Second, 10 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.timeout < tt.minValue {
				t.Errorf("%s = %v, want >= %v", tt.name, tt.timeout, tt.minValue)
			}
			if tt.timeout > tt.maxValue {
				t.Errorf("%s = %v, want <= %v", tt.name, tt.timeout, tt.maxValue)
			}
		})
	}
}

func TestTimeoutRelationships(t *testing.T) {
	if PlanBuildTimeout >= PlanHandlerTimeout {
		t.Errorf("PlanBuildTimeout (%v) should be less than PlanHandlerTimeout (%v)",
			PlanBuildTimeout, PlanHandlerTimeout)
	}
	if SessionPingInterval >= SessionPongTimeout {
		t.Errorf("SessionPingInterval (%v) should be less than SessionPongTimeout (%v)",
			SessionPingInterval, SessionPongTimeout)
	}
}

func TestPlanningLimits(t *testing.T) {
	if MaxExpansionDepth <= 0 {
		t.Errorf("MaxExpansionDepth must be positive, got %d", MaxExpansionDepth)
	}
	if MaxExpansionRecords < MaxExpansionDepth {
		t.Errorf("MaxExpansionRecords (%d) should exceed MaxExpansionDepth (%d)",
			MaxExpansionRecords, MaxExpansionDepth)
	}
	if MaxQuantity*MaxExpansionRecords >= math.MaxInt64 {
		t.Errorf("MaxQuantity (%g) over %d records overflows int64", float64(MaxQuantity), MaxExpansionRecords)
	}
}

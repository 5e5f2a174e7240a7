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

import "math"

// snapTolerance is the relative error below which a machine count is
// snapped down to the integer beneath it, absorbing products like 10*0.7.
const snapTolerance = 1e-12

// Aggregate groups records by machine type. Each record's machine count is
// rounded up before it is added to the machine total, and item totals sum
// every occurrence of the item across depths. Machine totals saturate at
// math.MaxInt.
func Aggregate(records []Record) Totals {
	out := make(Totals)
	for _, r := range records {
		mt, ok := out[r.Craft]
		if !ok {
			mt = MachineTotal{Items: make(map[string]ItemTotal)}
		}
		mt.Count = addMachines(mt.Count, machinesNeeded(r.MachineCount))

		it := mt.Items[r.Item]
		it.Count += r.Count
		it.MachineCount += r.MachineCount
		mt.Items[r.Item] = it

		out[r.Craft] = mt
	}
	return out
}

// machinesNeeded rounds v up. Any positive demand needs at least one machine.
func machinesNeeded(v float64) int {
	if !(v > 0) {
		return 0
	}
	if v >= float64(math.MaxInt) {
		return math.MaxInt
	}
	n := math.Floor(v)
	if n >= 1 && v-n <= v*snapTolerance {
		return int(n)
	}
	return int(math.Ceil(v))
}

func addMachines(a, b int) int {
	if a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}

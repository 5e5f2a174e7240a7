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

import (
	"fmt"
	"maps"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"k8s.io/utils/ptr"

	"github.com/mchmarny/craftplan/pkg/catalog"
	"github.com/mchmarny/craftplan/pkg/defaults"
	cperrors "github.com/mchmarny/craftplan/pkg/errors"
	"github.com/mchmarny/craftplan/pkg/header"
)

// RawMachine groups base resources in expansion output and totals.
const RawMachine = catalog.RawMachine

// Objective is the item to plan for and how many of it are wanted.
type Objective struct {
	Item  string  `json:"item" yaml:"item"`
	Count float64 `json:"count" yaml:"count"`
}

// Validate rejects counts that are negative, NaN, infinite or above
// defaults.MaxQuantity.
func (o Objective) Validate() error {
	if o.Count < 0 || math.IsNaN(o.Count) || math.IsInf(o.Count, 0) {
		return cperrors.NewWithContext(cperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid count %v for item %q", o.Count, o.Item),
			map[string]any{"item": o.Item, "count": o.Count})
	}
	if o.Count > defaults.MaxQuantity {
		return cperrors.NewWithContext(cperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("count %v for item %q exceeds %g", o.Count, o.Item, float64(defaults.MaxQuantity)),
			map[string]any{"item": o.Item, "count": o.Count, "max": float64(defaults.MaxQuantity)})
	}
	return nil
}

// Settings maps a machine type to its selected speed tier. Machines without
// an entry run at tier 0.
type Settings map[string]int

// Tier returns the selected tier of machine.
func (s Settings) Tier(machine string) int {
	return s[machine]
}

// Clone returns a copy of s. The copy of a nil Settings is empty, not nil.
func (s Settings) Clone() Settings {
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Validate checks every entry against the machine table of cat.
func (s Settings) Validate(cat *catalog.Catalog) error {
	machines := make([]string, 0, len(s))
	for m := range s {
		machines = append(machines, m)
	}
	sort.Strings(machines)

	for _, m := range machines {
		if _, err := cat.Speed(m, s[m]); err != nil {
			return err
		}
	}
	return nil
}

// String renders settings as sorted machine:tier pairs.
func (s Settings) String() string {
	machines := make([]string, 0, len(s))
	for m := range s {
		machines = append(machines, m)
	}
	sort.Strings(machines)

	parts := make([]string, 0, len(machines))
	for _, m := range machines {
		parts = append(parts, m+":"+strconv.Itoa(s[m]))
	}
	return strings.Join(parts, ",")
}

// ParseSettings parses machine:tier pairs such as "assembler:1". Later pairs
// override earlier ones for the same machine.
func ParseSettings(pairs []string) (Settings, error) {
	s := make(Settings, len(pairs))
	for _, p := range pairs {
		for _, part := range strings.Split(p, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			machine, tier, ok := strings.Cut(part, ":")
			if !ok || strings.TrimSpace(machine) == "" {
				return nil, cperrors.New(cperrors.ErrCodeInvalidRequest,
					fmt.Sprintf("invalid tier %q, expected machine:tier", part))
			}
			n, err := strconv.Atoi(strings.TrimSpace(tier))
			if err != nil {
				return nil, cperrors.Wrap(cperrors.ErrCodeInvalidRequest,
					fmt.Sprintf("invalid tier %q for machine %q", tier, machine), err)
			}
			s[strings.TrimSpace(machine)] = n
		}
	}
	return s, nil
}

// Record is one node of the expansion tree.
type Record struct {
	// Item is the item produced at this node.
	Item string `json:"item" yaml:"item"`

	// Count is how many of Item are required.
	Count float64 `json:"count" yaml:"count"`

	// Craft is the machine type producing Item, or RawMachine for base items.
	Craft string `json:"craft" yaml:"craft"`

	// MachineCount is Count times the speed of Craft at its selected tier.
	MachineCount float64 `json:"machineCount" yaml:"machineCount"`

	// Depth is the distance from the objective item.
	Depth int `json:"depth" yaml:"depth"`

	// Base is set for items with no recipe.
	Base bool `json:"base,omitempty" yaml:"base,omitempty"`
}

// ItemTotal sums all records of one item.
type ItemTotal struct {
	Count        float64 `json:"count" yaml:"count"`
	MachineCount float64 `json:"machineCount" yaml:"machineCount"`
}

// MachineTotal summarizes one machine type.
type MachineTotal struct {
	// Count is the sum of each record's machine count rounded up.
	Count int `json:"count" yaml:"count"`

	// Items holds per-item totals for the items this machine produces.
	Items map[string]ItemTotal `json:"items" yaml:"items"`
}

// Totals maps machine type to its summary.
type Totals map[string]MachineTotal

// Clone returns a deep copy of t.
func (t Totals) Clone() Totals {
	if t == nil {
		return nil
	}
	out := make(Totals, len(t))
	for m, mt := range t {
		mt.Items = maps.Clone(mt.Items)
		out[m] = mt
	}
	return out
}

// Machines returns the machine types in t, sorted.
func (t Totals) Machines() []string {
	out := make([]string, 0, len(t))
	for m := range t {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// PlanRequest is the body accepted by the plan endpoint. A missing count
// means one.
type PlanRequest struct {
	Item     string   `json:"item" yaml:"item"`
	Count    *float64 `json:"count,omitempty" yaml:"count,omitempty"`
	Settings Settings `json:"settings,omitempty" yaml:"settings,omitempty"`
}

// Objective returns the requested objective.
func (r *PlanRequest) Objective() Objective {
	return Objective{
		Item:  strings.TrimSpace(r.Item),
		Count: ptr.Deref(r.Count, 1),
	}
}

// Plan is the result of expanding and aggregating an objective.
type Plan struct {
	header.Header `json:",inline" yaml:",inline"`

	Objective Objective `json:"objective" yaml:"objective"`
	Settings  Settings  `json:"settings" yaml:"settings"`
	Records   []Record  `json:"records" yaml:"records"`
	Totals    Totals    `json:"totals" yaml:"totals"`
}

// TableHeader implements serializer.Tabular.
func (p *Plan) TableHeader() []string {
	return []string{"ITEM", "COUNT", "MACHINE", "MACHINES"}
}

// TableRows renders the expansion tree, indenting items by depth.
func (p *Plan) TableRows() [][]string {
	title := cases.Title(language.English)
	rows := make([][]string, 0, len(p.Records))
	for _, r := range p.Records {
		rows = append(rows, []string{
			strings.Repeat("  ", r.Depth) + r.Item,
			formatQuantity(r.Count),
			title.String(r.Craft),
			formatQuantity(r.MachineCount),
		})
	}
	return rows
}

// Summary returns the per-machine view of the plan.
func (p *Plan) Summary() *Summary {
	return &Summary{Totals: p.Totals}
}

// Summary renders Totals as a table, one row per machine and item.
type Summary struct {
	Totals Totals `json:"totals" yaml:"totals"`
}

// TableHeader implements serializer.Tabular.
func (s *Summary) TableHeader() []string {
	return []string{"MACHINE", "TOTAL", "ITEM", "COUNT", "MACHINES"}
}

// TableRows lists machines sorted by name; the machine name and total are
// printed on the first item row only.
func (s *Summary) TableRows() [][]string {
	title := cases.Title(language.English)
	var rows [][]string
	for _, m := range s.Totals.Machines() {
		mt := s.Totals[m]
		items := make([]string, 0, len(mt.Items))
		for it := range mt.Items {
			items = append(items, it)
		}
		sort.Strings(items)

		for i, it := range items {
			name, total := "", ""
			if i == 0 {
				name, total = title.String(m), strconv.Itoa(mt.Count)
			}
			rows = append(rows, []string{
				name,
				total,
				it,
				formatQuantity(mt.Items[it].Count),
				formatQuantity(mt.Items[it].MachineCount),
			})
		}
	}
	return rows
}

func formatQuantity(v float64) string {
	s := strconv.FormatFloat(v, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

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

package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	cperrors "github.com/mchmarny/craftplan/pkg/errors"
	"github.com/mchmarny/craftplan/pkg/header"
)

// Catalog is the loaded pair of recipe and machine tables. A Catalog is
// read-only after construction and safe for concurrent use.
type Catalog struct {
	header.Header `json:",inline" yaml:",inline"`

	// Resources lists raw items that have no recipe.
	Resources []string `json:"resources,omitempty" yaml:"resources,omitempty"`

	// Recipes maps item name to its recipe.
	Recipes map[string]Recipe `json:"recipes" yaml:"recipes"`

	// Machines maps machine type to its speed table.
	Machines map[string]Machine `json:"machines" yaml:"machines"`

	indexOnce sync.Once
	items     map[string]struct{}

	digestOnce sync.Once
	digest     string
}

// New builds a catalog from in-memory tables.
func New(recipes map[string]Recipe, machines map[string]Machine, resources ...string) *Catalog {
	c := &Catalog{
		Resources: resources,
		Recipes:   recipes,
		Machines:  machines,
	}
	c.Init(header.KindCatalog, header.APIVersion, "")
	return c
}

// Source describes where the catalog was loaded from.
func (c *Catalog) Source() string {
	return c.Metadata["source"]
}

// Recipe returns the recipe producing item. The second value is false for
// base resources and unknown items.
func (c *Catalog) Recipe(item string) (Recipe, bool) {
	r, ok := c.Recipes[item]
	return r, ok
}

// Machine returns the speed table of a machine type.
func (c *Catalog) Machine(name string) (Machine, error) {
	m, ok := c.Machines[name]
	if !ok {
		return Machine{}, cperrors.UnknownMachine(name)
	}
	return m, nil
}

// Speed returns the per-unit machine demand of a machine at a tier.
func (c *Catalog) Speed(machine string, tier int) (float64, error) {
	m, err := c.Machine(machine)
	if err != nil {
		return 0, err
	}
	if tier < 0 || tier >= len(m.Speed) {
		return 0, cperrors.NewWithContext(cperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("tier %d out of range for machine %q (0..%d)", tier, machine, len(m.Speed)-1),
			map[string]any{"machine": machine, "tier": tier, "tiers": len(m.Speed)})
	}
	return m.Speed[tier], nil
}

// HasItem reports whether item is a recipe output, a declared resource, or
// an ingredient of some recipe.
func (c *Catalog) HasItem(item string) bool {
	c.indexOnce.Do(c.buildIndex)
	_, ok := c.items[item]
	return ok
}

// Items returns every known item name, sorted.
func (c *Catalog) Items() []string {
	c.indexOnce.Do(c.buildIndex)
	out := make([]string, 0, len(c.items))
	for k := range c.items {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// MachineNames returns every machine type, sorted.
func (c *Catalog) MachineNames() []string {
	out := make([]string, 0, len(c.Machines))
	for k := range c.Machines {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Digest returns a hex SHA-256 of the table contents. Catalogs with equal
// tables have equal digests regardless of source or load time.
func (c *Catalog) Digest() string {
	c.digestOnce.Do(func() {
		resources := append([]string(nil), c.Resources...)
		sort.Strings(resources)
		b, err := json.Marshal(struct {
			Resources []string           `json:"resources"`
			Recipes   map[string]Recipe  `json:"recipes"`
			Machines  map[string]Machine `json:"machines"`
		}{resources, c.Recipes, c.Machines})
		if err != nil {
			// tables always marshal; fall back to an unshareable digest
			b = []byte(fmt.Sprintf("%p", c))
		}
		sum := sha256.Sum256(b)
		c.digest = hex.EncodeToString(sum[:])
	})
	return c.digest
}

func (c *Catalog) buildIndex() {
	c.items = make(map[string]struct{}, len(c.Recipes)+len(c.Resources))
	for _, r := range c.Resources {
		c.items[r] = struct{}{}
	}
	for name, r := range c.Recipes {
		c.items[name] = struct{}{}
		for _, in := range r.Items {
			c.items[in.Item] = struct{}{}
		}
	}
}

// Validate checks referential integrity of the tables and returns an
// ErrCodeInvalidRequest error listing every problem found.
func (c *Catalog) Validate() error {
	var problems []string

	if len(c.Machines) == 0 {
		problems = append(problems, "machine table is empty")
	}
	if _, ok := c.Machines[RawMachine]; ok {
		problems = append(problems, fmt.Sprintf("machine name %q is reserved", RawMachine))
	}
	for _, name := range c.MachineNames() {
		m := c.Machines[name]
		if len(m.Speed) == 0 {
			problems = append(problems, fmt.Sprintf("machine %q has no speed tiers", name))
		}
		for tier, s := range m.Speed {
			if s < 0 || math.IsNaN(s) || math.IsInf(s, 0) {
				problems = append(problems, fmt.Sprintf("machine %q tier %d has invalid speed %v", name, tier, s))
			}
		}
	}

	names := make([]string, 0, len(c.Recipes))
	for k := range c.Recipes {
		names = append(names, k)
	}
	sort.Strings(names)

	for _, name := range names {
		r := c.Recipes[name]
		if strings.TrimSpace(name) == "" {
			problems = append(problems, "recipe with empty item name")
		}
		if r.Craft == "" {
			problems = append(problems, fmt.Sprintf("recipe %q has no craft machine", name))
		} else if _, ok := c.Machines[r.Craft]; !ok {
			problems = append(problems, fmt.Sprintf("recipe %q uses unknown machine %q", name, r.Craft))
		}
		for _, in := range r.Items {
			if in.Item == "" {
				problems = append(problems, fmt.Sprintf("recipe %q has an ingredient with empty name", name))
			}
			if in.Quantity <= 0 || math.IsNaN(in.Quantity) || math.IsInf(in.Quantity, 0) {
				problems = append(problems, fmt.Sprintf("recipe %q ingredient %q has invalid quantity %v", name, in.Item, in.Quantity))
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return cperrors.NewWithContext(cperrors.ErrCodeInvalidRequest,
		"invalid catalog: "+strings.Join(problems, "; "),
		map[string]any{"problems": problems})
}

// unionStrings returns the ordered union of a and b without duplicates.
func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// TableHeader implements serializer.Tabular.
func (c *Catalog) TableHeader() []string {
	return []string{"ITEM", "MACHINE", "INGREDIENTS"}
}

// TableRows lists every recipe sorted by item, followed by raw resources.
func (c *Catalog) TableRows() [][]string {
	names := make([]string, 0, len(c.Recipes))
	for k := range c.Recipes {
		names = append(names, k)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names)+len(c.Resources))
	for _, name := range names {
		r := c.Recipes[name]
		parts := make([]string, 0, len(r.Items))
		for _, in := range r.Items {
			parts = append(parts, in.Item+" x"+strconv.FormatFloat(in.Quantity, 'g', -1, 64))
		}
		rows = append(rows, []string{name, r.Craft, strings.Join(parts, ", ")})
	}

	resources := append([]string(nil), c.Resources...)
	sort.Strings(resources)
	for _, r := range resources {
		rows = append(rows, []string{r, RawMachine, ""})
	}
	return rows
}

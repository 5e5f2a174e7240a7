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
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mchmarny/craftplan/pkg/header"
	"gopkg.in/yaml.v3"
)

// RawMachine is the reserved machine name under which base resources are
// grouped. Catalogs may not declare a machine with this name.
const RawMachine = "raw"

// Ingredient is one input of a recipe: the sub-item and how many of it one
// craft consumes.
type Ingredient struct {
	Item     string
	Quantity float64
}

// Ingredients is an ordered set of recipe inputs. It encodes as a YAML or
// JSON mapping from item name to quantity and keeps the order of the source
// document, which is the order expansion visits sub-items in.
type Ingredients []Ingredient

// Quantity returns the per-craft quantity of item and whether it is present.
func (in Ingredients) Quantity(item string) (float64, bool) {
	for _, i := range in {
		if i.Item == item {
			return i.Quantity, true
		}
	}
	return 0, false
}

// UnmarshalYAML decodes a mapping node preserving key order.
func (in *Ingredients) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*in = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: ingredients must be a mapping of item to quantity", node.Line)
	}

	out := make(Ingredients, 0, len(node.Content)/2)
	seen := make(map[string]bool, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if seen[key.Value] {
			return fmt.Errorf("line %d: duplicate ingredient %q", key.Line, key.Value)
		}
		seen[key.Value] = true

		var qty float64
		if err := val.Decode(&qty); err != nil {
			return fmt.Errorf("line %d: quantity of %q: %w", val.Line, key.Value, err)
		}
		out = append(out, Ingredient{Item: key.Value, Quantity: qty})
	}
	*in = out
	return nil
}

// MarshalYAML encodes the ingredients as an ordered mapping node.
func (in Ingredients) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, i := range in {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: i.Item},
			&yaml.Node{Kind: yaml.ScalarNode, Value: strconv.FormatFloat(i.Quantity, 'g', -1, 64)},
		)
	}
	return node, nil
}

// UnmarshalJSON decodes a JSON object preserving key order.
func (in *Ingredients) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*in = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("ingredients must be an object of item to quantity")
	}

	var out Ingredients
	seen := make(map[string]bool)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		if seen[key] {
			return fmt.Errorf("duplicate ingredient %q", key)
		}
		seen[key] = true

		var qty float64
		if err := dec.Decode(&qty); err != nil {
			return fmt.Errorf("quantity of %q: %w", key, err)
		}
		out = append(out, Ingredient{Item: key, Quantity: qty})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*in = out
	return nil
}

// MarshalJSON encodes the ingredients as an ordered JSON object.
func (in Ingredients) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for n, i := range in {
		if n > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(i.Item)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(i.Quantity)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Recipe describes how an item is produced.
type Recipe struct {
	// Craft is the machine type that produces the item.
	Craft string `json:"craft" yaml:"craft"`

	// Items are the sub-items consumed per craft, in declaration order.
	Items Ingredients `json:"items,omitempty" yaml:"items,omitempty"`
}

// Machine holds the speed table of a machine type.
type Machine struct {
	// Speed is indexed by tier. Each value is the machine demand per unit of
	// item count, so machineCount = count * Speed[tier].
	Speed []float64 `json:"speed" yaml:"speed"`
}

// Tiers returns the number of selectable speed tiers.
func (m Machine) Tiers() int {
	return len(m.Speed)
}

// RecipeTable is the on-disk document holding recipes and raw resources.
type RecipeTable struct {
	header.Header `json:",inline" yaml:",inline"`

	// Resources lists raw items that have no recipe but may be planned.
	Resources []string `json:"resources,omitempty" yaml:"resources,omitempty"`

	// Recipes maps item name to its recipe.
	Recipes map[string]Recipe `json:"recipes" yaml:"recipes"`
}

// MachineTable is the on-disk document holding machine speed tables.
type MachineTable struct {
	header.Header `json:",inline" yaml:",inline"`

	// Machines maps machine type to its speed table.
	Machines map[string]Machine `json:"machines" yaml:"machines"`
}

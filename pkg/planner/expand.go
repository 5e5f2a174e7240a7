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
	"context"
	"fmt"
	"strings"

	"github.com/mchmarny/craftplan/pkg/catalog"
	"github.com/mchmarny/craftplan/pkg/defaults"
	cperrors "github.com/mchmarny/craftplan/pkg/errors"
)

// Expand walks the recipe tree of item and returns one record per node in
// pre-order: the item itself first, then each ingredient subtree in recipe
// order. Each ingredient is required at count times its per-craft quantity.
//
// Items without a recipe produce a single base record under RawMachine with
// zero machine demand. An empty item yields no records.
func Expand(ctx context.Context, cat *catalog.Catalog, settings Settings, item string, count float64) ([]Record, error) {
	return ExpandAt(ctx, cat, settings, item, count, 0)
}

// ExpandAt is Expand with the root placed at depth.
func ExpandAt(ctx context.Context, cat *catalog.Catalog, settings Settings, item string, count float64, depth int) ([]Record, error) {
	if cat == nil {
		return nil, cperrors.New(cperrors.ErrCodeInternal, "catalog is nil")
	}
	if item == "" {
		return []Record{}, nil
	}
	if err := (Objective{Item: item, Count: count}).Validate(); err != nil {
		return nil, err
	}
	if depth < 0 {
		return nil, cperrors.New(cperrors.ErrCodeInvalidRequest, fmt.Sprintf("invalid depth %d", depth))
	}
	if err := settings.Validate(cat); err != nil {
		return nil, err
	}
	if !cat.HasItem(item) {
		return nil, cperrors.UnknownItem(item)
	}

	e := &expander{
		ctx:      ctx,
		cat:      cat,
		settings: settings,
		rootAt:   depth,
		onPath:   make(map[string]bool),
		records:  make([]Record, 0, 16),
	}
	if err := e.visit(item, count, depth); err != nil {
		return nil, err
	}
	return e.records, nil
}

type expander struct {
	ctx      context.Context
	cat      *catalog.Catalog
	settings Settings
	rootAt   int

	path    []string
	onPath  map[string]bool
	records []Record
}

func (e *expander) visit(item string, count float64, depth int) error {
	if err := e.ctx.Err(); err != nil {
		return cperrors.Wrap(cperrors.ErrCodeTimeout, "expansion canceled", err)
	}
	if count > defaults.MaxQuantity {
		return quantityExceeded(item, "count", count)
	}
	if e.onPath[item] {
		cycle := append(append([]string{}, e.path...), item)
		return cperrors.NewWithContext(cperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("recipe cycle: %s", strings.Join(cycle, " -> ")),
			map[string]any{"cycle": cycle})
	}
	if depth-e.rootAt > defaults.MaxExpansionDepth {
		return cperrors.New(cperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("expansion of %q exceeds depth %d", e.path[0], defaults.MaxExpansionDepth))
	}
	if len(e.records) >= defaults.MaxExpansionRecords {
		return cperrors.New(cperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("expansion exceeds %d records", defaults.MaxExpansionRecords))
	}

	recipe, ok := e.cat.Recipe(item)
	if !ok {
		e.records = append(e.records, Record{
			Item:  item,
			Count: count,
			Craft: RawMachine,
			Depth: depth,
			Base:  true,
		})
		return nil
	}

	speed, err := e.cat.Speed(recipe.Craft, e.settings.Tier(recipe.Craft))
	if err != nil {
		return err
	}
	machines := count * speed
	if machines > defaults.MaxQuantity {
		return quantityExceeded(item, "machine demand", machines)
	}

	e.records = append(e.records, Record{
		Item:         item,
		Count:        count,
		Craft:        recipe.Craft,
		MachineCount: machines,
		Depth:        depth,
	})

	e.path = append(e.path, item)
	e.onPath[item] = true
	for _, in := range recipe.Items {
		if err := e.visit(in.Item, count*in.Quantity, depth+1); err != nil {
			return err
		}
	}
	e.path = e.path[:len(e.path)-1]
	delete(e.onPath, item)
	return nil
}

func quantityExceeded(item, what string, v float64) error {
	return cperrors.NewWithContext(cperrors.ErrCodeInvalidRequest,
		fmt.Sprintf("%s %g of %q exceeds %g", what, v, item, float64(defaults.MaxQuantity)),
		map[string]any{"item": item, "max": float64(defaults.MaxQuantity)})
}

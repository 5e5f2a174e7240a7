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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cperrors "github.com/mchmarny/craftplan/pkg/errors"
	"github.com/mchmarny/craftplan/pkg/header"
)

func testCatalog() *Catalog {
	return New(
		map[string]Recipe{
			"A": {Craft: "M", Items: Ingredients{{Item: "B", Quantity: 3}}},
			"B": {Craft: "M"},
		},
		map[string]Machine{
			"M": {Speed: []float64{1.0, 0.5}},
		},
		"ore",
	)
}

func TestNew(t *testing.T) {
	c := testCatalog()
	assert.Equal(t, header.KindCatalog, c.Kind)
	assert.Equal(t, header.APIVersion, c.APIVersion)
	assert.NotEmpty(t, c.Metadata["timestamp"])
	assert.NoError(t, c.Validate())
}

func TestCatalog_Lookups(t *testing.T) {
	c := testCatalog()

	r, ok := c.Recipe("A")
	require.True(t, ok)
	assert.Equal(t, "M", r.Craft)

	_, ok = c.Recipe("ore")
	assert.False(t, ok)

	assert.True(t, c.HasItem("A"))
	assert.True(t, c.HasItem("B"))
	assert.True(t, c.HasItem("ore"))
	assert.False(t, c.HasItem("Z"))

	assert.Equal(t, []string{"A", "B", "ore"}, c.Items())
	assert.Equal(t, []string{"M"}, c.MachineNames())
}

func TestCatalog_Speed(t *testing.T) {
	c := testCatalog()

	tests := []struct {
		name    string
		machine string
		tier    int
		want    float64
		code    cperrors.ErrorCode
	}{
		{name: "tier 0", machine: "M", tier: 0, want: 1.0},
		{name: "tier 1", machine: "M", tier: 1, want: 0.5},
		{name: "tier out of range", machine: "M", tier: 2, code: cperrors.ErrCodeInvalidRequest},
		{name: "negative tier", machine: "M", tier: -1, code: cperrors.ErrCodeInvalidRequest},
		{name: "unknown machine", machine: "X", tier: 0, code: cperrors.ErrCodeUnknownMachine},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Speed(tt.machine, tt.tier)
			if tt.code != "" {
				require.Error(t, err)
				assert.Equal(t, tt.code, cperrors.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestCatalog_Validate(t *testing.T) {
	tests := []struct {
		name     string
		recipes  map[string]Recipe
		machines map[string]Machine
		contains string
	}{
		{
			name:     "no machines",
			recipes:  map[string]Recipe{},
			machines: map[string]Machine{},
			contains: "machine table is empty",
		},
		{
			name:     "reserved machine",
			machines: map[string]Machine{RawMachine: {Speed: []float64{1}}},
			contains: "reserved",
		},
		{
			name:     "no tiers",
			machines: map[string]Machine{"M": {}},
			contains: "no speed tiers",
		},
		{
			name:     "negative speed",
			machines: map[string]Machine{"M": {Speed: []float64{-1}}},
			contains: "invalid speed",
		},
		{
			name:     "nan speed",
			machines: map[string]Machine{"M": {Speed: []float64{math.NaN()}}},
			contains: "invalid speed",
		},
		{
			name:     "unknown machine",
			recipes:  map[string]Recipe{"A": {Craft: "X"}},
			machines: map[string]Machine{"M": {Speed: []float64{1}}},
			contains: "unknown machine",
		},
		{
			name:     "missing craft",
			recipes:  map[string]Recipe{"A": {}},
			machines: map[string]Machine{"M": {Speed: []float64{1}}},
			contains: "no craft machine",
		},
		{
			name:     "zero quantity",
			recipes:  map[string]Recipe{"A": {Craft: "M", Items: Ingredients{{Item: "B", Quantity: 0}}}},
			machines: map[string]Machine{"M": {Speed: []float64{1}}},
			contains: "invalid quantity",
		},
		{
			name:     "empty ingredient",
			recipes:  map[string]Recipe{"A": {Craft: "M", Items: Ingredients{{Item: "", Quantity: 1}}}},
			machines: map[string]Machine{"M": {Speed: []float64{1}}},
			contains: "empty name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.recipes, tt.machines).Validate()
			require.Error(t, err)
			assert.True(t, cperrors.IsCode(err, cperrors.ErrCodeInvalidRequest))
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestCatalog_ValidateCollectsAllProblems(t *testing.T) {
	c := New(
		map[string]Recipe{
			"A": {Craft: "X"},
			"B": {Craft: "Y"},
		},
		map[string]Machine{"M": {Speed: []float64{1}}},
	)

	err := c.Validate()
	require.Error(t, err)

	var se *cperrors.StructuredError
	require.ErrorAs(t, err, &se)
	problems, ok := se.Context["problems"].([]string)
	require.True(t, ok)
	assert.Len(t, problems, 2)
}

func TestCatalog_TableRows(t *testing.T) {
	c := testCatalog()

	assert.Equal(t, []string{"ITEM", "MACHINE", "INGREDIENTS"}, c.TableHeader())
	assert.Equal(t, [][]string{
		{"A", "M", "B x3"},
		{"B", "M", ""},
		{"ore", RawMachine, ""},
	}, c.TableRows())
}

func TestUnionStrings(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, unionStrings([]string{"a", "b"}, []string{"b", "c", "a"}))
	assert.Empty(t, unionStrings(nil, nil))
}

func TestCatalog_Digest(t *testing.T) {
	a := testCatalog()
	b := testCatalog()
	b.Metadata["source"] = "elsewhere"

	assert.Len(t, a.Digest(), 64)
	assert.Equal(t, a.Digest(), b.Digest(), "digest ignores metadata")

	c := New(
		map[string]Recipe{
			"A": {Craft: "M", Items: Ingredients{{Item: "B", Quantity: 4}}},
			"B": {Craft: "M"},
		},
		map[string]Machine{"M": {Speed: []float64{1.0, 0.5}}},
		"ore",
	)
	assert.NotEqual(t, a.Digest(), c.Digest())
}

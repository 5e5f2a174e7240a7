package planner

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate_LeafRecipe(t *testing.T) {
	records, err := Expand(context.Background(), leafCatalog(), nil, "A", 3)
	require.NoError(t, err)

	totals := Aggregate(records)
	require.Len(t, totals, 1)

	m := totals["M"]
	assert.Equal(t, 9, m.Count)
	assert.Equal(t, ItemTotal{Count: 3, MachineCount: 3}, m.Items["A"])
	assert.Equal(t, ItemTotal{Count: 6, MachineCount: 6}, m.Items["B"])
}

func TestAggregate_CeilsEachRecord(t *testing.T) {
	records := []Record{
		{Item: "plate", Count: 1, Craft: "smelter", MachineCount: 0.5, Depth: 1},
		{Item: "plate", Count: 1, Craft: "smelter", MachineCount: 0.5, Depth: 2},
	}

	totals := Aggregate(records)
	assert.Equal(t, 2, totals["smelter"].Count, "two half machines round up separately")
	assert.InDelta(t, 1.0, totals["smelter"].Items["plate"].MachineCount, 1e-9)
	assert.InDelta(t, 2.0, totals["smelter"].Items["plate"].Count, 1e-9)
}

func TestAggregate_Tolerance(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want int
	}{
		{"zero", 0, 0},
		{"negative", -1, 0},
		{"exact", 3, 3},
		{"float noise above integer", 10.000000000001, 10},
		{"product noise", 7.000000000000001, 7},
		{"fraction", 2.01, 3},
		{"tiny", 0.0001, 1},
		{"sub tolerance positive", 1e-10, 1},
		{"just above one", 1.0000000005, 2},
		{"nan", math.NaN(), 0},
		{"beyond int range", 1e300, math.MaxInt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, machinesNeeded(tt.in))
		})
	}
}

func TestAggregate_Empty(t *testing.T) {
	totals := Aggregate(nil)
	assert.NotNil(t, totals)
	assert.Empty(t, totals)
}

func TestAggregate_RawRecords(t *testing.T) {
	records, err := Expand(context.Background(), factoryCatalog(), nil, "engine", 10)
	require.NoError(t, err)

	totals := Aggregate(records)
	assert.Equal(t, []string{"assembler", RawMachine, "smelter"}, totals.Machines())
	assert.Equal(t, 0, totals[RawMachine].Count)
	assert.InDelta(t, 40, totals[RawMachine].Items["ore"].Count, 1e-9)

	// engine 10 + gear 10 at speed 1
	assert.Equal(t, 20, totals["assembler"].Count)
	// plate 20 twice at speed 0.5
	assert.Equal(t, 20, totals["smelter"].Count)
	assert.InDelta(t, 40, totals["smelter"].Items["plate"].Count, 1e-9)
}

func TestAggregate_Saturates(t *testing.T) {
	records := []Record{
		{Item: "A", Count: 1, Craft: "M", MachineCount: 1e300},
		{Item: "B", Count: 1, Craft: "M", MachineCount: 1e300},
	}
	assert.Equal(t, math.MaxInt, Aggregate(records)["M"].Count)
}

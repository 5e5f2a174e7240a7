package planner

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cperrors "github.com/mchmarny/craftplan/pkg/errors"
)

func TestSession_Initial(t *testing.T) {
	s := NewSession(factoryCatalog())

	assert.Equal(t, Objective{}, s.Objective())
	assert.Empty(t, s.Settings())
	assert.Empty(t, s.Records())
	assert.Empty(t, s.Aggregate())
	assert.NoError(t, s.Err())
}

func TestSession_SetObjective(t *testing.T) {
	s := NewSession(factoryCatalog())

	require.NoError(t, s.SetObjective("gear", 4))
	assert.Equal(t, Objective{Item: "gear", Count: 4}, s.Objective())
	require.Len(t, s.Records(), 3)
	assert.Equal(t, 4, s.Aggregate()["assembler"].Count)
	assert.Equal(t, 4, s.Aggregate()["smelter"].Count)
}

func TestSession_SetTierRecomputes(t *testing.T) {
	s := NewSession(factoryCatalog())
	require.NoError(t, s.SetObjective("gear", 4))

	require.NoError(t, s.SetTier("smelter", 1))
	assert.Equal(t, Settings{"smelter": 1}, s.Settings())
	assert.Equal(t, 2, s.Aggregate()["smelter"].Count)

	s.ResetSettings()
	assert.Empty(t, s.Settings())
	assert.Equal(t, 4, s.Aggregate()["smelter"].Count)
}

func TestSession_RejectedMutations(t *testing.T) {
	s := NewSession(factoryCatalog())
	require.NoError(t, s.SetObjective("gear", 4))

	calls := 0
	s.Subscribe(func(Snapshot) { calls++ })

	assert.True(t, cperrors.IsCode(s.SetObjective("gear", -1), cperrors.ErrCodeInvalidRequest))
	assert.True(t, cperrors.IsCode(s.SetTier("furnace", 0), cperrors.ErrCodeUnknownMachine))
	assert.True(t, cperrors.IsCode(s.SetTier("smelter", 9), cperrors.ErrCodeInvalidRequest))

	assert.Equal(t, 0, calls, "rejected mutations do not notify")
	assert.Equal(t, Objective{Item: "gear", Count: 4}, s.Objective())
	assert.Empty(t, s.Settings())
}

func TestSession_UnknownItemIsReported(t *testing.T) {
	s := NewSession(factoryCatalog())

	var got Snapshot
	s.Subscribe(func(snap Snapshot) { got = snap })

	require.NoError(t, s.SetObjective("widget", 1))
	assert.Equal(t, "widget", s.Objective().Item)
	assert.True(t, cperrors.IsCode(s.Err(), cperrors.ErrCodeUnknownItem))
	assert.Empty(t, s.Records())
	assert.True(t, cperrors.IsCode(got.Err, cperrors.ErrCodeUnknownItem))

	require.NoError(t, s.SetObjective("gear", 1))
	assert.NoError(t, s.Err())
}

func TestSession_SubscribersInOrder(t *testing.T) {
	s := NewSession(factoryCatalog())

	var order []string
	s.Subscribe(func(Snapshot) { order = append(order, "first") })
	s.Subscribe(func(snap Snapshot) {
		order = append(order, "second")
		assert.Equal(t, snap.Objective, s.Objective(), "subscribers may read the session")
	})

	require.NoError(t, s.SetObjective("gear", 1))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestSession_SnapshotIsConsistent(t *testing.T) {
	s := NewSession(factoryCatalog())

	var snaps []Snapshot
	s.Subscribe(func(snap Snapshot) { snaps = append(snaps, snap) })

	require.NoError(t, s.SetObjective("gear", 2))
	require.NoError(t, s.SetTier("assembler", 1))

	require.Len(t, snaps, 2)
	assert.Equal(t, 2, snaps[0].Totals["assembler"].Count)
	assert.Equal(t, Settings{"assembler": 1}, snaps[1].Settings)
	assert.Equal(t, 1, snaps[1].Totals["assembler"].Count)
	assert.Empty(t, snaps[0].Settings, "earlier snapshot keeps its settings")
}

func TestSession_ReadersGetCopies(t *testing.T) {
	s := NewSession(factoryCatalog())

	var second Snapshot
	s.Subscribe(func(snap Snapshot) {
		snap.Records[0].Count = -1
		snap.Totals["assembler"].Items["gear"] = ItemTotal{}
		delete(snap.Totals, "smelter")
	})
	s.Subscribe(func(snap Snapshot) { second = snap })

	require.NoError(t, s.SetObjective("gear", 4))
	assert.InDelta(t, 4, second.Records[0].Count, 1e-9, "subscribers do not share records")
	assert.Contains(t, second.Totals, "smelter")

	records := s.Records()
	records[0].Item = "changed"
	totals := s.Aggregate()
	totals["assembler"].Items["gear"] = ItemTotal{Count: 99}
	snap := s.Snapshot()
	snap.Records[0].Count = 99

	assert.Equal(t, "gear", s.Records()[0].Item)
	assert.InDelta(t, 4, s.Records()[0].Count, 1e-9)
	assert.Equal(t, ItemTotal{Count: 4, MachineCount: 4}, s.Aggregate()["assembler"].Items["gear"])
}

func TestTotals_Clone(t *testing.T) {
	assert.Nil(t, Totals(nil).Clone())

	orig := Totals{"M": {Count: 1, Items: map[string]ItemTotal{"A": {Count: 1}}}}
	c := orig.Clone()
	c["M"].Items["A"] = ItemTotal{Count: 5}
	assert.Equal(t, ItemTotal{Count: 1}, orig["M"].Items["A"])
}

func TestSession_Unsubscribe(t *testing.T) {
	s := NewSession(factoryCatalog())

	calls := 0
	unsubscribe := s.Subscribe(func(Snapshot) { calls++ })

	require.NoError(t, s.SetObjective("gear", 1))
	unsubscribe()
	unsubscribe()
	require.NoError(t, s.SetObjective("gear", 2))

	assert.Equal(t, 1, calls)
}

func TestSession_ConcurrentMutations(t *testing.T) {
	s := NewSession(factoryCatalog())

	var mu sync.Mutex
	var counts []float64
	s.Subscribe(func(snap Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		counts = append(counts, snap.Objective.Count)
	})

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			assert.NoError(t, s.SetObjective("engine", float64(n)))
			_ = s.Snapshot()
		}(i)
	}
	wg.Wait()

	assert.Len(t, counts, 20)
	mu.Lock()
	last := counts[len(counts)-1]
	mu.Unlock()
	assert.Equal(t, last, s.Objective().Count, "last notification matches final state")
}

// Package planner expands a crafting objective into the tree of
// intermediate items it requires and sums the machines needed to build it.
//
// Expand walks the recipe graph depth-first and emits one Record per node in
// pre-order. Ingredient counts scale by the parent count times the recipe
// quantity, and each record's machine demand is its count times the speed
// of its machine at the selected tier. Items without a recipe end the walk
// with a base record under RawMachine.
//
//	records, err := planner.Expand(ctx, cat, planner.Settings{"assembler": 1}, "engine", 10)
//	totals := planner.Aggregate(records)
//
// Aggregate rounds every record up to whole machines before summing, so two
// records needing 0.5 machines each count as two machines, not one.
//
// Session keeps an objective and settings and recomputes the expansion on
// every change, notifying subscribers in order. Builder wraps Expand with
// catalog loading, plan caching and HTTP handlers for craftpland.
package planner

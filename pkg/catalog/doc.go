// Package catalog holds the recipe and machine tables that drive plan
// expansion.
//
// # Tables
//
// A catalog is built from two YAML documents. The recipe table maps an item
// to the machine that crafts it and its ordered ingredient list; items with
// no recipe are raw resources. The machine table maps a machine type to its
// per-tier speed factors.
//
//	kind: RecipeTable
//	apiVersion: craftplan.dev/v1
//	resources: [iron-ore]
//	recipes:
//	  iron-plate:
//	    craft: smelter
//	    items:
//	      iron-ore: 1
//
//	kind: MachineTable
//	apiVersion: craftplan.dev/v1
//	machines:
//	  smelter:
//	    speed: [0.5, 0.25]
//
// Ingredient order is preserved on decode and encode so that expansion
// output is deterministic.
//
// # Sources
//
// Default tables are embedded in the binary. LoadFrom accepts other sources:
//
//	catalog.LoadFrom(ctx, "")                                // embedded
//	catalog.LoadFrom(ctx, "./my-tables")                     // directory layered over embedded
//	catalog.LoadFrom(ctx, "https://example.com/catalog.yaml") // single Catalog document
//	catalog.LoadFrom(ctx, "cm://games/catalog")              // ConfigMap keys recipes.yaml, machines.yaml
//	catalog.LoadFrom(ctx, "oci://ghcr.io/acme/catalog:v1")   // artifact pushed by "craftplan catalog push"
//
// Every load validates referential integrity: each recipe's machine must be
// present in the machine table, speeds must be finite and non-negative and
// ingredient quantities must be positive. All problems are reported in one
// INVALID_REQUEST error.
//
// A Catalog is immutable after loading and safe for concurrent use.
package catalog

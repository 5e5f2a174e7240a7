// Package cli implements the command-line interface for craftplan.
//
// # Overview
//
// The craftplan CLI expands crafting objectives into recipe trees and totals
// the machines needed to build them. It reads the same catalogs as the
// craftpland API server and can publish catalogs to an OCI registry.
//
// # Commands
//
// plan - Expand an item and total machine demand:
//
//	craftplan plan --item engine --count 10 [--tier assembler:1] [--summary]
//
// Prints one row per node of the expansion tree, indented by depth, with the
// item count, producing machine and fractional machine demand. With
// --summary, prints per-machine totals where each node is rounded up to whole
// machines before summing.
//
// catalog show - Print the catalog:
//
//	craftplan catalog show [--catalog SRC] [--format yaml]
//
// catalog validate - Check a catalog:
//
//	craftplan catalog validate --catalog ./my-catalog
//
// catalog push - Publish a catalog directory:
//
//	craftplan catalog push --dir ./my-catalog --ref oci://ghcr.io/acme/catalog:v1
//
// # Catalog Sources
//
// --catalog accepts a directory layered over the embedded tables, a single
// Catalog document (file or http(s) URL), a ConfigMap (cm://namespace/name)
// or an OCI artifact (oci://registry/repository:tag). Empty means the
// embedded tables.
//
// # Output
//
//	--output, -o   file path or ConfigMap URI (cm://namespace/name); default stdout
//	--format, -t   table (default), json or yaml
//
// # Environment Variables
//
//	LOG_LEVEL          logging verbosity (debug, info, warn, error)
//	CRAFTPLAN_CATALOG  default for --catalog
//
// # Exit Codes
//
//	0  Success
//	1  Invalid arguments, unknown item or machine, or execution failure
package cli

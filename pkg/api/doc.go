// Package api wires the craftpland HTTP daemon.
//
// Serve loads the catalog, builds the plan cache and registers:
//
//	GET|POST /v1/plan     expand and aggregate an objective
//	GET      /v1/catalog  the recipe and machine tables in use
//	GET      /v1/session  WebSocket live planning session
//
// Environment:
//
//	CRAFTPLAN_CATALOG    catalog source: directory, file, http(s) URL, cm://ns/name or oci://ref
//	CRAFTPLAN_CACHE      plan cache: "memory" (default) or redis://host:port/db
//	CRAFTPLAN_CACHE_TTL  lifetime of cached plans, e.g. 10m
//	PORT                 listen port (default 8080)
//	LOG_LEVEL            debug, info, warn or error
package api

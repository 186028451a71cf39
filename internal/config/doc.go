// Package config defines the YAML configuration schema for the
// multitier daemon and the machinery around it: loading with
// environment-variable substitution, defaulting, validation, and a
// file watcher for hot reloads.
//
// A configuration file has six sections:
//
//	server:        HTTP listener address and timeouts
//	registry:      site store backend (memory or redis)
//	sites:         seed records for the memory store
//	routes:        the URL pattern forest
//	rateLimit:     per-tenant request limits
//	observability: logging, metrics listener, tracing
//
// Values may reference environment variables as ${VAR} or
// ${VAR:-default}; substitution happens before parsing. Durations are
// Go duration strings ("30s", "1h30m").
package config

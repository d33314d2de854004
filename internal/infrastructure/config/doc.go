// Package config loads and validates Postman Probe configuration.
//
// Configuration comes from a YAML file resolved in this order: explicit
// path, the CONFIG_PATH environment variable, then configs/config.yaml.
// Six top-level sections are required (collection, database, api, postman,
// governance, logging) and governance weights must sum to 1.0 within a
// 0.001 tolerance.
//
// A closed whitelist of environment variables overrides file values:
// COLLECTION_SCHEDULE, DATABASE_PATH, API_PORT, LOG_LEVEL and
// POSTMAN_RATE_LIMIT. The environment is passed in as an explicit snapshot
// so tests stay deterministic.
//
// Loading is single-shot: any failure aborts startup with a wrapped
// ErrConfiguration. The returned Config is written once and treated as
// read-only by all consumers.
package config

// Package database manages the probe's local SQLite store.
//
// It wraps database/sql with lifecycle management (directory creation,
// WAL mode, busy timeout, restrictive file permissions), a health check
// and embedded schema migrations. The schema files themselves live in the
// top-level migrations package and are registered via MigrationsFS.
//
// SQLite is configured for a single writer: the collector writes one run
// at a time while the HTTP API reads concurrently under WAL.
package database

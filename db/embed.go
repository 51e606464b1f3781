// Package db provides the embedded schema of the postgres artifact store.
package db

import _ "embed"

// Schema creates one table per artifact plus the artifacts registry. It is
// idempotent.
//
//go:embed migrations/001_schema.sql
var Schema string

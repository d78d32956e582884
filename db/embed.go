// Package db embeds the schema and the default catalog seed.
package db

import _ "embed"

// Schema contains the DDL statements for all application tables. Every
// statement is idempotent.
//
//go:embed migrations/001_schema.sql
var Schema string

// Catalog is the default seed for products and reference options.
//
//go:embed seed/catalog.json
var Catalog []byte

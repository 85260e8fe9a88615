// Package db embeds the SQL schema shipped with the binary.
package db

import _ "embed"

// Schema holds the DDL for the coupon, usage, order, and auth tables.
//
//go:embed migrations/001_schema.sql
var Schema string

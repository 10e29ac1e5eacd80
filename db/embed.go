// Package db embeds the PostgreSQL schema for the optional database backend.
package db

import _ "embed"

// Schema contains the DDL for the products table and the sale journal.
//
//go:embed migrations/001_schema.sql
var Schema string

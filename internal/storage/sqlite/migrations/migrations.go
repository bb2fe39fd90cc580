// Package migrations embeds the schema files for the sqlite KV substrate.
package migrations

import "embed"

// FS holds the embedded migration files.
//
//go:embed *.sql
var FS embed.FS

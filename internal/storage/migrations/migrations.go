// Package migrations embeds the schema migrations for the SQL storage backends.
package migrations

import "embed"

// SQLite holds the migrations for the SQLite backend, under sqlite/.
//
//go:embed sqlite/*.sql
var SQLite embed.FS

// Postgres holds the migrations for the Postgres backend, under postgres/.
//
//go:embed postgres/*.sql
var Postgres embed.FS

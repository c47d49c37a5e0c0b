package migrations

import "embed"

// Postgres embeds the PostgreSQL migration files.
//
//go:embed postgres/*.sql
var Postgres embed.FS

package migrations

import "embed"

// FS holds the schema migrations applied by cmd/migrate and by the
// Postgres repository tests.
//
//go:embed *.sql
var FS embed.FS

package db

import "embed"

// MigrationFS embeds the SQL schema for identities, verification codes, failed attempts and audit logs.
// Applied by internal/db/migrate (cmd/migrate).
//
//go:embed migrations/*.sql
var MigrationFS embed.FS

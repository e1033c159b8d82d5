// Package migrations embeds the SQL schema for the auto-responder store.
package migrations

import "embed"

// FS holds the embedded SQL migration files.
//
//go:embed *.sql
var FS embed.FS

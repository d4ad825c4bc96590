// Package migrations embeds the goose SQL migrations so binaries can
// apply them without shipping loose files alongside the executable.
package migrations

import "embed"

// FS holds the embedded migration files.
//
//go:embed *.sql
var FS embed.FS

// Package migrations embeds the goose SQL migrations: the API server schema at the
// top level and the client session table under client/.
package migrations

import "embed"

// FS holds every migration.
//
//go:embed *.sql client/*.sql
var FS embed.FS

// Migration sets inside FS.
const (
	ServerDir = "."
	ClientDir = "client"
)

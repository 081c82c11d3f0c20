// Package appfs embeds the static assets shipped with the binaries.
package appfs

import "embed"

//go:embed migrations templates banks
var FS embed.FS

const (
	MigrationsDir     = "migrations"
	EmailTemplatesDir = "templates/email"
	BanksDir          = "banks"
)

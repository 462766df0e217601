// Package assets embeds the static files shipped inside the binaries.
package assets

import "embed"

const (
	EmailTemplatesDir   = "templates/email"
	MigrationsDir       = "migrations"
	CommonPasswordsFile = "common-passwords.txt"
)

//go:embed common-passwords.txt migrations/*.sql templates/email/*
var FS embed.FS

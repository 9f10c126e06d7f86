// Package assets embeds the SQL migrations shipped with the binary.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrations embed.FS

// PostgresMigrations returns golang-migrate style up/down files for Postgres.
func PostgresMigrations() fs.FS {
	sub, err := fs.Sub(migrations, "migrations/postgres")
	if err != nil {
		panic(err)
	}
	return sub
}

// SQLiteMigrations returns the ordered schema files for SQLite.
func SQLiteMigrations() fs.FS {
	sub, err := fs.Sub(migrations, "migrations/sqlite")
	if err != nil {
		panic(err)
	}
	return sub
}

package barberworld

import (
	"embed"
	"io/fs"
)

// migrationsFS holds the fulfillment SQL migration tree, including the
// sqlite alternatives under data/sql/migrations/sqlite.
//
//go:embed data/sql/migrations/*.sql data/sql/migrations/sqlite/*.sql
var migrationsFS embed.FS

// GetMigrationsFS returns the full embedded migration tree.
func GetMigrationsFS() fs.FS {
	return migrationsFS
}

// GetCoreMigrationsFS returns the fulfillment schema migration tree.
func GetCoreMigrationsFS() fs.FS {
	return migrationsFS
}

// Package migrations embeds the SQL schema files into the binary so the
// probe can migrate its database without shipping loose .sql files.
package migrations

import (
	"embed"

	"github.com/jaredboynton/postman-probe-sub001/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "." // files sit at the root of the embedded FS
}

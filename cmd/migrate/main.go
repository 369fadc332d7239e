// migrate runs the schema migrations as a standalone job, so API revisions can
// start with SKIP_MIGRATIONS=true and never block on DDL.
//
// Usage:
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/migrate
package main

import (
	"log"

	"github.com/finacore/recognition_backend/config"
	"github.com/finacore/recognition_backend/models"
)

func main() {
	config.ConnectDatabaseWithRetry()
	models.MigrateTable()
	log.Println("migrations applied")
}

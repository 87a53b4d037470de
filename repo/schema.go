package repo

import (
	"context"
	"fmt"

	"github.com/Skryldev/user-records/db"
)

// usersDDL holds the create-if-absent statement per database/sql driver.
// The table is created once and never altered afterwards.
var usersDDL = map[string]string{
	"postgres": `
		CREATE TABLE IF NOT EXISTS users (
			id         SERIAL PRIMARY KEY,
			name       VARCHAR(100) NOT NULL,
			email      VARCHAR(100) UNIQUE NOT NULL,
			age        INTEGER,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	"sqlite3": `
		CREATE TABLE IF NOT EXISTS users (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT NOT NULL,
			email      TEXT NOT NULL UNIQUE,
			age        INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
}

// EnsureSchema creates the users table if it does not exist yet. It is
// idempotent and must complete before the service accepts traffic.
func EnsureSchema(ctx context.Context, q db.Querier, driverName string) error {
	ddl, ok := usersDDL[driverName]
	if !ok {
		return fmt.Errorf("repo/schema: no users table definition for driver %q", driverName)
	}
	if _, err := q.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("repo/schema: create users table: %w", err)
	}
	return nil
}

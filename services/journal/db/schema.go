package db

import (
	"context"
	_ "embed"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

// Migrate creates missing tables and indexes. Statements are sent one at
// a time, remote libsql connections do not take a batch in Exec.
func Migrate(ctx context.Context, db DBTX) error {
	for _, stmt := range strings.Split(Schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		_, err := db.ExecContext(ctx, stmt)
		if err != nil {
			return err
		}
	}
	return nil
}

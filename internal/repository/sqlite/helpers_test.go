package sqlite_test

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/cmlabs-hris/attendance-tracker/internal/pkg/database"
)

// openTestDB returns a migrated in-memory database unique to the test,
// closed automatically when the test finishes.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	name := "test_" + strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := database.OpenSQLiteMemory(context.Background(), name)
	if err != nil {
		t.Fatalf("openTestDB: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// newTestWriter returns a write worker backed by conn, closed when the test finishes.
func newTestWriter(t *testing.T, conn *sql.DB) *database.Worker {
	t.Helper()

	w := database.NewWorker(conn)
	t.Cleanup(func() { w.Close() })
	return w
}

// Package testing provides testing utilities and helpers for the deepfolio project.
package testing

import (
	"os"
	"testing"

	"github.com/aristath/deepfolio/internal/database"
)

// NewTestDB creates a migrated SQLite database in a temporary file.
// The database is closed and removed when the test finishes.
//
// Supported schema names:
//   - "history" - applies history_schema.sql
//   - Unknown names - creates empty database (no schema applied)
func NewTestDB(t *testing.T, name string) *database.DB {
	t.Helper()

	// A file rather than :memory: so the pool can hold more than one connection
	tmpFile, err := os.CreateTemp(t.TempDir(), "test_"+name+"_*.db")
	if err != nil {
		t.Fatalf("Failed to create temporary database file: %v", err)
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()

	db, err := database.New(database.Config{
		Path:    tmpPath,
		Profile: database.ProfileStandard,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}
	if err := db.Migrate(); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}

package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// SetupTestDB opens an in-memory SQLite database with the schema applied.
// The database is closed when the test finishes.
func SetupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open("sqlite:///:memory:")
	require.NoError(t, err, "Failed to create test database")

	t.Cleanup(func() {
		require.NoError(t, db.Close(), "Failed to close test database")
	})

	return db
}

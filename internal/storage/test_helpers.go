package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testContext bounds a single test; sweeps against a real database finish well inside it
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// skipWithoutBackend skips when -short is set or the backend could not be reached
func skipWithoutBackend(t *testing.T, backend string, err error) {
	t.Helper()
	if testing.Short() {
		t.Skipf("Skipping %s integration test in short mode", backend)
	}
	if err != nil {
		t.Skipf("Skipping test - %s not available: %v", backend, err)
	}
}

// resetCatalog empties job_records so IDs restart at 1 in every test
func resetCatalog(t *testing.T, db *PostgresDB) {
	t.Helper()
	_, err := db.Pool().Exec(testContext(t), "TRUNCATE job_records RESTART IDENTITY")
	require.NoError(t, err)
}

package store

import (
	"os"
	"testing"
)

func TestSQLiteStore(t *testing.T) {
	testStore(t, sdb)
}

// TestPostgresStore needs a running Postgres, set GOSHARE_TEST_POSTGRES to a
// connection string to enable it, for example:
// "host=localhost user=test password=test dbname=test port=5432 sslmode=disable"
func TestPostgresStore(t *testing.T) {
	conn := os.Getenv("GOSHARE_TEST_POSTGRES")
	if conn == "" {
		t.Skip("GOSHARE_TEST_POSTGRES is not set")
	}
	pdb, err := NewPostgresDB(conn, true, nil)
	if err != nil {
		t.Fatalf("Failed to create a PostgresDB store: %v", err)
	}
	defer pdb.Close()

	testStore(t, pdb)
}

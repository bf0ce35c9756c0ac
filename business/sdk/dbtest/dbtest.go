// Package dbtest contains supporting code for running tests that hit the DB.
package dbtest

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/jcpaschoal/gymhub/business/sdk/migrate"
	"github.com/jcpaschoal/gymhub/business/sdk/sqldb"
	"github.com/jcpaschoal/gymhub/foundation/logger"
	"github.com/jmoiron/sqlx"
)

// Database owns the state for running a test against SQLite files living in
// a per-test temporary directory.
type Database struct {
	Log *logger.Logger
	DB  *sqlx.DB
	Dir string

	buf *bytes.Buffer
}

// New opens and migrates a central registry database. Logs are buffered
// and only printed when the test fails.
func New(t *testing.T) *Database {
	t.Helper()

	var buf bytes.Buffer
	log := logger.New(&buf, logger.LevelInfo, "TEST", nil)

	dir := t.TempDir()

	db := Open(t, log, filepath.Join(dir, "central.db"), migrate.Central)

	t.Cleanup(func() {
		if t.Failed() {
			t.Log(buf.String())
		}
	})

	return &Database{
		Log: log,
		DB:  db,
		Dir: dir,
		buf: &buf,
	}
}

// NewTenant opens and migrates a tenant database next to the central one.
func (d *Database) NewTenant(t *testing.T, slug string) *sqlx.DB {
	t.Helper()

	return Open(t, d.Log, filepath.Join(d.Dir, slug+".db"), migrate.Tenant)
}

// Open opens the sqlite file at path and applies the migration set.
func Open(t *testing.T, log *logger.Logger, path string, set migrate.Set) *sqlx.DB {
	t.Helper()

	db, err := sqldb.OpenSQLite(path)
	if err != nil {
		t.Fatalf("opening database: %s", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := migrate.Migrate(context.Background(), log, db, set); err != nil {
		t.Fatalf("migrating database: %s", err)
	}

	return db
}

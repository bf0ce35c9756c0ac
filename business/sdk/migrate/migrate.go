// Package migrate brings the central registry and tenant databases up to the
// latest schema using scripts embedded in the binary.
package migrate

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/jcpaschoal/gymhub/business/sdk/sqldb"
	"github.com/jcpaschoal/gymhub/foundation/logger"
	"github.com/jmoiron/sqlx"
)

//go:embed sql
var scripts embed.FS

// Set names a family of migration scripts.
type Set string

// The set of schemas this service owns.
const (
	Central Set = "central"
	Tenant  Set = "tenant"
)

// Migrate applies every script of the set newer than the version recorded in
// the database, each inside its own transaction. It returns how many scripts
// were applied.
func Migrate(ctx context.Context, log *logger.Logger, db *sqlx.DB, set Set) (int, error) {
	dir, err := scriptDir(db, set)
	if err != nil {
		return 0, err
	}

	list, err := fs.ReadDir(scripts, dir)
	if err != nil {
		return 0, fmt.Errorf("read scripts[%s]: %w", dir, err)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].Name() < list[j].Name()
	})

	if err := sqldb.ExecContext(ctx, log, db, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return 0, fmt.Errorf("create version table: %w", err)
	}

	current, err := version(ctx, db)
	if err != nil {
		return 0, err
	}

	var applied int
	for _, f := range list {
		name := f.Name()

		v, err := scriptVersion(name)
		if err != nil {
			return applied, err
		}

		if v <= current {
			continue
		}

		body, err := scripts.ReadFile(path.Join(dir, name))
		if err != nil {
			return applied, fmt.Errorf("read script[%s]: %w", name, err)
		}

		log.Info(ctx, "migrate", "set", set, "script", name)

		if err := apply(ctx, db, string(body), v); err != nil {
			return applied, fmt.Errorf("apply[%s]: %w", name, err)
		}

		current = v
		applied++
	}

	return applied, nil
}

// Version reports the latest script applied to the database.
func Version(ctx context.Context, db *sqlx.DB) (int, error) {
	return version(ctx, db)
}

func apply(ctx context.Context, db *sqlx.DB, script string, v int) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return errors.Join(err, tx.Rollback())
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO schema_version (version) VALUES (?)`), v); err != nil {
		return errors.Join(err, tx.Rollback())
	}

	return tx.Commit()
}

func version(ctx context.Context, db *sqlx.DB) (int, error) {
	var v int
	if err := db.GetContext(ctx, &v, `SELECT COALESCE(MAX(version), 0) FROM schema_version`); err != nil {
		return 0, fmt.Errorf("read version: %w", err)
	}
	return v, nil
}

func scriptDir(db *sqlx.DB, set Set) (string, error) {
	switch db.DriverName() {
	case sqldb.DriverSQLite:
		return path.Join("sql", string(set), "sqlite"), nil
	case sqldb.DriverPostgres:
		return path.Join("sql", string(set), "postgres"), nil
	default:
		return "", fmt.Errorf("no migrations for driver %q", db.DriverName())
	}
}

// scriptVersion extracts the version from a file named like "0002_name.sql".
func scriptVersion(filename string) (int, error) {
	v, err := strconv.Atoi(strings.SplitN(filename, "_", 2)[0])
	if err != nil {
		return 0, fmt.Errorf("script version[%s]: %w", filename, err)
	}
	return v, nil
}

// Package sqlitestore keeps every tenant in its own SQLite file.
package sqlitestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jcpaschoal/gymhub/business/sdk/sqldb"
	"github.com/jcpaschoal/gymhub/business/types/slug"
	"github.com/jmoiron/sqlx"
)

// Backend opens tenant files below a root directory.
type Backend struct {
	dir string
}

// New constructs a backend storing tenant files in dir/tenants.
func New(dir string) *Backend {
	return &Backend{
		dir: filepath.Join(dir, "tenants"),
	}
}

// Name identifies the backend in logs.
func (b *Backend) Name() string {
	return "sqlite"
}

// Path returns the file holding the tenant's data.
func (b *Backend) Path(slg slug.Slug) string {
	return filepath.Join(b.dir, slg.String()+".db")
}

// Open opens the tenant file, creating it when missing.
func (b *Backend) Open(ctx context.Context, slg slug.Slug) (*sqlx.DB, bool, error) {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return nil, false, fmt.Errorf("mkdir[%s]: %w", b.dir, err)
	}

	path := b.Path(slg)

	_, err := os.Stat(path)
	created := errors.Is(err, fs.ErrNotExist)
	if err != nil && !created {
		return nil, false, fmt.Errorf("stat[%s]: %w", path, err)
	}

	db, err := sqldb.OpenSQLite(path)
	if err != nil {
		return nil, false, err
	}

	return db, created, nil
}

// Archive renames the tenant file and its WAL companions.
func (b *Backend) Archive(ctx context.Context, slg slug.Slug, suffix string) error {
	path := b.Path(slg)
	target := filepath.Join(b.dir, fmt.Sprintf("%s.%s.db", slg, suffix))

	for _, ext := range []string{"", "-wal", "-shm"} {
		err := os.Rename(path+ext, target+ext)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("rename[%s]: %w", path+ext, err)
		}
	}

	return nil
}

// Package pgstore keeps every tenant in its own Postgres schema.
package pgstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jcpaschoal/gymhub/business/sdk/sqldb"
	"github.com/jcpaschoal/gymhub/business/types/slug"
	"github.com/jcpaschoal/gymhub/foundation/logger"
	"github.com/jmoiron/sqlx"
)

// Backend creates tenant schemas through the central connection and opens
// one small pool per tenant with its schema on the search path.
type Backend struct {
	log     *logger.Logger
	central *sqlx.DB
	cfg     sqldb.Config
}

// New constructs a backend. cfg describes how to reach the server; its
// Schema is replaced per tenant.
func New(log *logger.Logger, central *sqlx.DB, cfg sqldb.Config) *Backend {
	return &Backend{
		log:     log,
		central: central,
		cfg:     cfg,
	}
}

// Name identifies the backend in logs.
func (b *Backend) Name() string {
	return "postgres"
}

// Schema returns the schema holding the tenant's data.
func Schema(slg slug.Slug) string {
	return "tenant_" + strings.ReplaceAll(slg.String(), "-", "_")
}

// Open creates the tenant schema when missing and opens a pool bound to it.
func (b *Backend) Open(ctx context.Context, slg slug.Slug) (*sqlx.DB, bool, error) {
	schema := Schema(slg)

	exists, err := b.schemaExists(ctx, schema)
	if err != nil {
		return nil, false, err
	}

	if !exists {
		q := "CREATE SCHEMA IF NOT EXISTS " + pgx.Identifier{schema}.Sanitize()
		if err := sqldb.ExecContext(ctx, b.log, b.central, q); err != nil {
			return nil, false, fmt.Errorf("create schema[%s]: %w", schema, err)
		}
	}

	cfg := b.cfg
	cfg.Driver = sqldb.DriverPostgres
	cfg.Schema = schema

	db, err := sqldb.Open(cfg)
	if err != nil {
		return nil, false, fmt.Errorf("open schema[%s]: %w", schema, err)
	}

	return db, !exists, nil
}

// Archive renames the tenant schema.
func (b *Backend) Archive(ctx context.Context, slg slug.Slug, suffix string) error {
	schema := Schema(slg)

	exists, err := b.schemaExists(ctx, schema)
	if err != nil || !exists {
		return err
	}

	target := schema + "_" + strings.ReplaceAll(suffix, "-", "_")

	q := fmt.Sprintf("ALTER SCHEMA %s RENAME TO %s", pgx.Identifier{schema}.Sanitize(), pgx.Identifier{target}.Sanitize())
	if err := sqldb.ExecContext(ctx, b.log, b.central, q); err != nil {
		return fmt.Errorf("rename schema[%s]: %w", schema, err)
	}

	return nil
}

func (b *Backend) schemaExists(ctx context.Context, schema string) (bool, error) {
	data := struct {
		Schema string `db:"schema_name"`
	}{
		Schema: schema,
	}

	const q = `
	SELECT
		count(*) AS n
	FROM
		information_schema.schemata
	WHERE
		schema_name = :schema_name`

	var result struct {
		N int `db:"n"`
	}

	if err := sqldb.NamedQueryStruct(ctx, b.log, b.central, q, data, &result); err != nil {
		return false, fmt.Errorf("schema exists[%s]: %w", schema, err)
	}

	return result.N > 0, nil
}

// Package sqldb provides support for access the database.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jcpaschoal/gymhub/foundation/logger"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// The set of supported drivers.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

const uniqueViolation = "23505"

// Set of error variables for CRUD operations.
var (
	ErrDBNotFound = sql.ErrNoRows
)

// ErrDBDuplicatedEntry reports the column or constraint that rejected an
// insert or update.
type ErrDBDuplicatedEntry struct {
	Column string
}

func (e ErrDBDuplicatedEntry) Error() string {
	return fmt.Sprintf("duplicated entry: %s", e.Column)
}

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Config is the required properties to use the database.
type Config struct {
	Driver       string
	User         string
	Password     string
	Host         string
	Name         string
	Schema       string
	Path         string
	MaxIdleConns int
	MaxOpenConns int
	DisableTLS   bool
}

// Open knows how to open a database connection based on the configuration.
func Open(cfg Config) (*sqlx.DB, error) {
	switch cfg.Driver {
	case DriverSQLite:
		return OpenSQLite(cfg.Path)
	case DriverPostgres, "":
		return openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}
}

// OpenSQLite opens a single file database. One connection serializes the
// writers, WAL keeps readers from blocking them.
func OpenSQLite(path string) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite",
		filepath.ToSlash(path))

	db, err := sql.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite[%s]: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	return sqlx.NewDb(db, DriverSQLite), nil
}

func openPostgres(cfg Config) (*sqlx.DB, error) {
	sslMode := "require"
	if cfg.DisableTLS {
		sslMode = "disable"
	}

	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host,
		Path:     cfg.Name,
		RawQuery: q.Encode(),
	}

	pgCfg, err := pgx.ParseConfig(u.String())
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Schema != "" {
		pgCfg.RuntimeParams["search_path"] = cfg.Schema
	}

	db := sqlx.NewDb(stdlib.OpenDB(*pgCfg), DriverPostgres)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	return db, nil
}

// StatusCheck returns nil if it can successfully talk to the database. It
// returns a non-nil error otherwise.
func StatusCheck(ctx context.Context, db *sqlx.DB) error {

	// If the user doesn't give us a deadline set 1 second.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Second)
		defer cancel()
	}

	for attempts := 1; ; attempts++ {
		if err := db.PingContext(ctx); err == nil {
			break
		}

		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	// Run a simple query to determine connectivity.
	// Running this query forces a round trip through the database.
	const q = `SELECT 1`
	var tmp int
	return db.QueryRowContext(ctx, q).Scan(&tmp)
}

// ExecContext is a helper function to execute a CUD operation without
// named arguments.
func ExecContext(ctx context.Context, log *logger.Logger, db sqlx.ExtContext, query string) error {
	log.Debug(ctx, "database.ExecContext", "query", query)

	if _, err := db.ExecContext(ctx, query); err != nil {
		return mapErr(err)
	}

	return nil
}

// NamedExecContext is a helper function to execute a CUD operation with
// logging and tracing where field replacement is necessary.
func NamedExecContext(ctx context.Context, log *logger.Logger, db sqlx.ExtContext, query string, data any) error {
	_, err := NamedExecContextWithCount(ctx, log, db, query, data)
	return err
}

// NamedExecContextWithCount is a helper function to execute a CUD operation
// and report the number of rows affected.
func NamedExecContextWithCount(ctx context.Context, log *logger.Logger, db sqlx.ExtContext, query string, data any) (int64, error) {
	log.Debug(ctx, "database.NamedExecContext", "query", queryString(query, data))

	res, err := sqlx.NamedExecContext(ctx, db, query, data)
	if err != nil {
		return 0, mapErr(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	return n, nil
}

// NamedQuerySlice is a helper function for executing queries that return a
// collection of data to be unmarshalled into a slice where field replacement is
// necessary.
func NamedQuerySlice[T any](ctx context.Context, log *logger.Logger, db sqlx.ExtContext, query string, data any, dest *[]T) error {
	log.Debug(ctx, "database.NamedQuerySlice", "query", queryString(query, data))

	rows, err := sqlx.NamedQueryContext(ctx, db, query, data)
	if err != nil {
		return mapErr(err)
	}
	defer rows.Close()

	var slice []T
	for rows.Next() {
		v := new(T)
		if err := rows.StructScan(v); err != nil {
			return err
		}
		slice = append(slice, *v)
	}

	if err := rows.Err(); err != nil {
		return err
	}

	*dest = slice

	return nil
}

// NamedQueryStruct is a helper function for executing queries that return a
// single value to be unmarshalled into a struct type where field replacement is
// necessary.
func NamedQueryStruct(ctx context.Context, log *logger.Logger, db sqlx.ExtContext, query string, data any, dest any) error {
	log.Debug(ctx, "database.NamedQueryStruct", "query", queryString(query, data))

	rows, err := sqlx.NamedQueryContext(ctx, db, query, data)
	if err != nil {
		return mapErr(err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return ErrDBNotFound
	}

	if err := rows.StructScan(dest); err != nil {
		return err
	}

	return nil
}

// mapErr converts driver specific constraint errors into ErrDBDuplicatedEntry.
func mapErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDBDuplicatedEntry{Column: pgErr.ConstraintName}
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return ErrDBDuplicatedEntry{Column: uniqueTarget(liteErr.Error())}
		}
	}

	return err
}

// uniqueTarget extracts the column or index from messages like
// "UNIQUE constraint failed: gyms.slug" or "UNIQUE constraint failed: index 'uq_x'".
func uniqueTarget(msg string) string {
	const marker = "constraint failed: "

	i := strings.LastIndex(msg, marker)
	if i < 0 {
		return msg
	}
	target := msg[i+len(marker):]

	if j := strings.IndexAny(target, " ("); j > 0 && !strings.HasPrefix(target, "index ") {
		target = target[:j]
	}

	if strings.HasPrefix(target, "index '") {
		target = strings.TrimPrefix(target, "index '")
		if j := strings.Index(target, "'"); j >= 0 {
			target = target[:j]
		}
		return target
	}

	target = strings.SplitN(target, ",", 2)[0]
	if j := strings.LastIndex(target, "."); j >= 0 {
		target = target[j+1:]
	}

	return strings.TrimSpace(target)
}

// queryString provides a pretty print version of the query and parameters.
func queryString(query string, args any) string {
	query, params, err := sqlx.Named(query, args)
	if err != nil {
		return err.Error()
	}

	for _, param := range params {
		var value string
		switch v := param.(type) {
		case string:
			value = fmt.Sprintf("'%s'", v)
		case []byte:
			value = fmt.Sprintf("'%s'", string(v))
		default:
			value = fmt.Sprintf("%v", v)
		}
		query = strings.Replace(query, "?", value, 1)
	}

	query = strings.ReplaceAll(query, "\t", "")
	query = strings.ReplaceAll(query, "\n", " ")

	return strings.TrimSpace(query)
}

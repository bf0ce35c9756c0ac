// Package passdb contains pass, token and usage log related CRUD
// functionality.
package passdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/business/domain/passbus"
	"github.com/jcpaschoal/gymhub/business/sdk/sqldb"
	"github.com/jcpaschoal/gymhub/business/types/passstatus"
	"github.com/jcpaschoal/gymhub/foundation/logger"
	"github.com/jmoiron/sqlx"
)

const columns = `
	pass_id, user_id, offering_id, status, valid_from, valid_until, total_entries,
	remaining_entries, serial_number, name, description, price_cents, currency,
	created_at, updated_at`

// Store manages the set of APIs for pass database access.
type Store struct {
	log *logger.Logger
	db  sqlx.ExtContext
}

// NewStore constructs the api for data access.
func NewStore(log *logger.Logger, db sqlx.ExtContext) *Store {
	return &Store{
		log: log,
		db:  db,
	}
}

// NewWithTx constructs a new Store value replacing the sqlx DB
// value with a sqlx DB value that is currently inside a transaction.
func (s *Store) NewWithTx(tx sqldb.CommitRollbacker) (passbus.Storer, error) {
	ec, err := sqldb.GetExtContext(tx)
	if err != nil {
		return nil, err
	}

	store := Store{
		log: s.log,
		db:  ec,
	}

	return &store, nil
}

// Create inserts a new pass into the database.
func (s *Store) Create(ctx context.Context, p passbus.Pass) error {
	q := `
	INSERT INTO user_passes
		(` + columns + `)
	VALUES
		(:pass_id, :user_id, :offering_id, :status, :valid_from, :valid_until, :total_entries,
		:remaining_entries, :serial_number, :name, :description, :price_cents, :currency,
		:created_at, :updated_at)`

	if err := sqldb.NamedExecContext(ctx, s.log, s.db, q, toDBPass(p)); err != nil {
		return fmt.Errorf("namedexeccontext: %w", err)
	}

	return nil
}

// SetStatusIf writes the status only while the stored status still equals
// from. It reports whether the row changed.
func (s *Store) SetStatusIf(ctx context.Context, passID uuid.UUID, from passstatus.Status, to passstatus.Status, now time.Time) (bool, error) {
	data := struct {
		ID        string    `db:"pass_id"`
		From      string    `db:"from_status"`
		To        string    `db:"status"`
		UpdatedAt time.Time `db:"updated_at"`
	}{
		ID:        passID.String(),
		From:      from.String(),
		To:        to.String(),
		UpdatedAt: now.UTC(),
	}

	const q = `
	UPDATE
		user_passes
	SET
		status = :status,
		updated_at = :updated_at
	WHERE
		pass_id = :pass_id AND status = :from_status`

	n, err := sqldb.NamedExecContextWithCount(ctx, s.log, s.db, q, data)
	if err != nil {
		return false, fmt.Errorf("namedexeccontext: %w", err)
	}

	return n == 1, nil
}

// SetStatus writes the status unconditionally.
func (s *Store) SetStatus(ctx context.Context, passID uuid.UUID, to passstatus.Status, now time.Time) error {
	data := struct {
		ID        string    `db:"pass_id"`
		To        string    `db:"status"`
		UpdatedAt time.Time `db:"updated_at"`
	}{
		ID:        passID.String(),
		To:        to.String(),
		UpdatedAt: now.UTC(),
	}

	const q = `
	UPDATE
		user_passes
	SET
		status = :status,
		updated_at = :updated_at
	WHERE
		pass_id = :pass_id`

	n, err := sqldb.NamedExecContextWithCount(ctx, s.log, s.db, q, data)
	if err != nil {
		return fmt.Errorf("namedexeccontext: %w", err)
	}

	if n == 0 {
		return fmt.Errorf("db: %w", passbus.ErrNotFound)
	}

	return nil
}

// Decrement takes count entries off an ACTIVE pass holding at least that
// many, in a single statement. The pass turns DEPLETED when it reaches
// zero. It reports false when the guard did not hold.
func (s *Store) Decrement(ctx context.Context, passID uuid.UUID, count int, now time.Time) (bool, error) {
	data := struct {
		ID        string    `db:"pass_id"`
		Count     int       `db:"count"`
		Active    string    `db:"active"`
		Depleted  string    `db:"depleted"`
		UpdatedAt time.Time `db:"updated_at"`
	}{
		ID:        passID.String(),
		Count:     count,
		Active:    passstatus.Active.String(),
		Depleted:  passstatus.Depleted.String(),
		UpdatedAt: now.UTC(),
	}

	const q = `
	UPDATE
		user_passes
	SET
		remaining_entries = remaining_entries - :count,
		status = CASE WHEN remaining_entries - :count = 0 THEN :depleted ELSE status END,
		updated_at = :updated_at
	WHERE
		pass_id = :pass_id AND
		status = :active AND
		remaining_entries IS NOT NULL AND
		remaining_entries >= :count`

	n, err := sqldb.NamedExecContextWithCount(ctx, s.log, s.db, q, data)
	if err != nil {
		return false, fmt.Errorf("namedexeccontext: %w", err)
	}

	return n == 1, nil
}

// QueryByID gets the specified pass from the database.
func (s *Store) QueryByID(ctx context.Context, passID uuid.UUID) (passbus.Pass, error) {
	data := struct {
		ID string `db:"pass_id"`
	}{
		ID: passID.String(),
	}

	q := `
	SELECT` + columns + `
	FROM
		user_passes
	WHERE
		pass_id = :pass_id`

	return s.queryOne(ctx, q, data)
}

// QueryBySerial gets the pass carrying the serial number.
func (s *Store) QueryBySerial(ctx context.Context, serial string) (passbus.Pass, error) {
	data := struct {
		Serial string `db:"serial_number"`
	}{
		Serial: serial,
	}

	q := `
	SELECT` + columns + `
	FROM
		user_passes
	WHERE
		serial_number = :serial_number`

	return s.queryOne(ctx, q, data)
}

// QueryByUser retrieves the member's passes, newest first.
func (s *Store) QueryByUser(ctx context.Context, userID uuid.UUID) ([]passbus.Pass, error) {
	data := struct {
		UserID string `db:"user_id"`
	}{
		UserID: userID.String(),
	}

	q := `
	SELECT` + columns + `
	FROM
		user_passes
	WHERE
		user_id = :user_id
	ORDER BY
		created_at DESC, pass_id`

	var dbPs []passDB
	if err := sqldb.NamedQuerySlice(ctx, s.log, s.db, q, data, &dbPs); err != nil {
		return nil, fmt.Errorf("namedqueryslice: %w", err)
	}

	return toBusPasses(dbPs)
}

// =============================================================================

// CreateToken inserts a new token into the database.
func (s *Store) CreateToken(ctx context.Context, t passbus.Token) error {
	const q = `
	INSERT INTO pass_tokens
		(token_id, pass_id, token, active, created_at)
	VALUES
		(:token_id, :pass_id, :token, :active, :created_at)`

	if err := sqldb.NamedExecContext(ctx, s.log, s.db, q, toDBToken(t)); err != nil {
		return fmt.Errorf("namedexeccontext: %w", err)
	}

	return nil
}

// DeactivateToken marks the token inactive.
func (s *Store) DeactivateToken(ctx context.Context, tokenID uuid.UUID) error {
	data := struct {
		ID string `db:"token_id"`
	}{
		ID: tokenID.String(),
	}

	const q = `
	UPDATE
		pass_tokens
	SET
		active = FALSE
	WHERE
		token_id = :token_id`

	if err := sqldb.NamedExecContext(ctx, s.log, s.db, q, data); err != nil {
		return fmt.Errorf("namedexeccontext: %w", err)
	}

	return nil
}

// QueryToken gets the token row for the opaque token string.
func (s *Store) QueryToken(ctx context.Context, token string) (passbus.Token, error) {
	data := struct {
		Token string `db:"token"`
	}{
		Token: token,
	}

	const q = `
	SELECT
		token_id, pass_id, token, active, created_at
	FROM
		pass_tokens
	WHERE
		token = :token`

	var dbT tokenDB
	if err := sqldb.NamedQueryStruct(ctx, s.log, s.db, q, data, &dbT); err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			return passbus.Token{}, fmt.Errorf("db: %w", passbus.ErrTokenNotFound)
		}
		return passbus.Token{}, fmt.Errorf("db: %w", err)
	}

	return toBusToken(dbT), nil
}

// QueryTokensByPass retrieves every token issued for the pass.
func (s *Store) QueryTokensByPass(ctx context.Context, passID uuid.UUID) ([]passbus.Token, error) {
	data := struct {
		ID string `db:"pass_id"`
	}{
		ID: passID.String(),
	}

	const q = `
	SELECT
		token_id, pass_id, token, active, created_at
	FROM
		pass_tokens
	WHERE
		pass_id = :pass_id`

	var dbTs []tokenDB
	if err := sqldb.NamedQuerySlice(ctx, s.log, s.db, q, data, &dbTs); err != nil {
		return nil, fmt.Errorf("namedqueryslice: %w", err)
	}

	return toBusTokens(dbTs), nil
}

// =============================================================================

// AddUsage appends a usage log entry.
func (s *Store) AddUsage(ctx context.Context, ul passbus.UsageLog) error {
	const q = `
	INSERT INTO pass_usage_logs
		(log_id, pass_id, action, entries, staff_id, created_at)
	VALUES
		(:log_id, :pass_id, :action, :entries, :staff_id, :created_at)`

	if err := sqldb.NamedExecContext(ctx, s.log, s.db, q, toDBUsage(ul)); err != nil {
		return fmt.Errorf("namedexeccontext: %w", err)
	}

	return nil
}

// QueryUsage retrieves the latest usage entries across the tenant.
func (s *Store) QueryUsage(ctx context.Context, limit int) ([]passbus.UsageLog, error) {
	data := struct {
		Limit int `db:"limit"`
	}{
		Limit: limit,
	}

	const q = `
	SELECT
		log_id, pass_id, action, entries, staff_id, created_at
	FROM
		pass_usage_logs
	ORDER BY
		log_seq DESC
	LIMIT :limit`

	var dbUs []usageDB
	if err := sqldb.NamedQuerySlice(ctx, s.log, s.db, q, data, &dbUs); err != nil {
		return nil, fmt.Errorf("namedqueryslice: %w", err)
	}

	return toBusUsages(dbUs)
}

// QueryUsageByPass retrieves the latest usage entries of one pass.
func (s *Store) QueryUsageByPass(ctx context.Context, passID uuid.UUID, limit int) ([]passbus.UsageLog, error) {
	data := struct {
		ID    string `db:"pass_id"`
		Limit int    `db:"limit"`
	}{
		ID:    passID.String(),
		Limit: limit,
	}

	const q = `
	SELECT
		log_id, pass_id, action, entries, staff_id, created_at
	FROM
		pass_usage_logs
	WHERE
		pass_id = :pass_id
	ORDER BY
		log_seq DESC
	LIMIT :limit`

	var dbUs []usageDB
	if err := sqldb.NamedQuerySlice(ctx, s.log, s.db, q, data, &dbUs); err != nil {
		return nil, fmt.Errorf("namedqueryslice: %w", err)
	}

	return toBusUsages(dbUs)
}

// =============================================================================

func (s *Store) queryOne(ctx context.Context, q string, data any) (passbus.Pass, error) {
	var dbP passDB
	if err := sqldb.NamedQueryStruct(ctx, s.log, s.db, q, data, &dbP); err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			return passbus.Pass{}, fmt.Errorf("db: %w", passbus.ErrNotFound)
		}
		return passbus.Pass{}, fmt.Errorf("db: %w", err)
	}

	return toBusPass(dbP)
}

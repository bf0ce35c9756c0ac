// Package reservationdb contains registration reservation related CRUD
// functionality.
package reservationdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/business/domain/reservationbus"
	"github.com/jcpaschoal/gymhub/business/sdk/sqldb"
	"github.com/jcpaschoal/gymhub/business/types/reservationstatus"
	"github.com/jcpaschoal/gymhub/business/types/slug"
	"github.com/jcpaschoal/gymhub/foundation/logger"
	"github.com/jmoiron/sqlx"
)

const columns = `
	reservation_id, slug, business_name, contact_name, email, phone, plan_id,
	status, checkout_id, gym_id, created_at, expires_at, completed_at`

// Store manages the set of APIs for reservation database access.
type Store struct {
	log *logger.Logger
	db  sqlx.ExtContext
}

// NewStore constructs the api for data access.
func NewStore(log *logger.Logger, db *sqlx.DB) *Store {
	return &Store{
		log: log,
		db:  db,
	}
}

// NewWithTx constructs a new Store value replacing the sqlx DB
// value with a sqlx DB value that is currently inside a transaction.
func (s *Store) NewWithTx(tx sqldb.CommitRollbacker) (reservationbus.Storer, error) {
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

// Create inserts a new reservation into the database.
func (s *Store) Create(ctx context.Context, r reservationbus.Reservation) error {
	const q = `
	INSERT INTO registration_sessions
		(reservation_id, slug, business_name, contact_name, email, phone, plan_id,
		status, checkout_id, gym_id, created_at, expires_at, completed_at)
	VALUES
		(:reservation_id, :slug, :business_name, :contact_name, :email, :phone, :plan_id,
		:status, :checkout_id, :gym_id, :created_at, :expires_at, :completed_at)`

	if err := sqldb.NamedExecContext(ctx, s.log, s.db, q, toDBReservation(r)); err != nil {
		return fmt.Errorf("namedexeccontext: %w", mapDup(err))
	}

	return nil
}

// Update replaces the mutable fields of a reservation.
func (s *Store) Update(ctx context.Context, r reservationbus.Reservation) error {
	const q = `
	UPDATE
		registration_sessions
	SET
		status = :status,
		checkout_id = :checkout_id,
		gym_id = :gym_id,
		completed_at = :completed_at
	WHERE
		reservation_id = :reservation_id`

	if err := sqldb.NamedExecContext(ctx, s.log, s.db, q, toDBReservation(r)); err != nil {
		return fmt.Errorf("namedexeccontext: %w", mapDup(err))
	}

	return nil
}

// UpdateStatusIf writes the reservation's status only while the stored
// status still equals from. It reports whether the row changed.
func (s *Store) UpdateStatusIf(ctx context.Context, r reservationbus.Reservation, from reservationstatus.Status) (bool, error) {
	data := struct {
		reservationDB
		From string `db:"from_status"`
	}{
		reservationDB: toDBReservation(r),
		From:          from.String(),
	}

	const q = `
	UPDATE
		registration_sessions
	SET
		status = :status,
		completed_at = :completed_at
	WHERE
		reservation_id = :reservation_id AND status = :from_status`

	n, err := sqldb.NamedExecContextWithCount(ctx, s.log, s.db, q, data)
	if err != nil {
		return false, fmt.Errorf("namedexeccontext: %w", err)
	}

	return n == 1, nil
}

// QueryByID gets the specified reservation from the database.
func (s *Store) QueryByID(ctx context.Context, reservationID uuid.UUID) (reservationbus.Reservation, error) {
	data := struct {
		ID string `db:"reservation_id"`
	}{
		ID: reservationID.String(),
	}

	q := `
	SELECT` + columns + `
	FROM
		registration_sessions
	WHERE
		reservation_id = :reservation_id`

	return s.queryOne(ctx, q, data)
}

// QueryByCheckoutID gets the reservation bound to the checkout session.
func (s *Store) QueryByCheckoutID(ctx context.Context, checkoutID string) (reservationbus.Reservation, error) {
	data := struct {
		CheckoutID string `db:"checkout_id"`
	}{
		CheckoutID: checkoutID,
	}

	q := `
	SELECT` + columns + `
	FROM
		registration_sessions
	WHERE
		checkout_id = :checkout_id`

	return s.queryOne(ctx, q, data)
}

// QueryPending retrieves every reservation still marked PENDING_PAYMENT.
func (s *Store) QueryPending(ctx context.Context) ([]reservationbus.Reservation, error) {
	data := struct {
		Status string `db:"status"`
	}{
		Status: reservationstatus.PendingPayment.String(),
	}

	q := `
	SELECT` + columns + `
	FROM
		registration_sessions
	WHERE
		status = :status`

	var dbRs []reservationDB
	if err := sqldb.NamedQuerySlice(ctx, s.log, s.db, q, data, &dbRs); err != nil {
		return nil, fmt.Errorf("namedqueryslice: %w", err)
	}

	return toBusReservations(dbRs)
}

// QueryPendingBySlug retrieves the reservations marked PENDING_PAYMENT for
// the slug, whether or not they have expired.
func (s *Store) QueryPendingBySlug(ctx context.Context, slg slug.Slug) ([]reservationbus.Reservation, error) {
	data := struct {
		Slug   string `db:"slug"`
		Status string `db:"status"`
	}{
		Slug:   slg.String(),
		Status: reservationstatus.PendingPayment.String(),
	}

	q := `
	SELECT` + columns + `
	FROM
		registration_sessions
	WHERE
		slug = :slug AND status = :status`

	var dbRs []reservationDB
	if err := sqldb.NamedQuerySlice(ctx, s.log, s.db, q, data, &dbRs); err != nil {
		return nil, fmt.Errorf("namedqueryslice: %w", err)
	}

	return toBusReservations(dbRs)
}

// =============================================================================

func (s *Store) queryOne(ctx context.Context, q string, data any) (reservationbus.Reservation, error) {
	var dbR reservationDB
	if err := sqldb.NamedQueryStruct(ctx, s.log, s.db, q, data, &dbR); err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			return reservationbus.Reservation{}, fmt.Errorf("db: %w", reservationbus.ErrNotFound)
		}
		return reservationbus.Reservation{}, fmt.Errorf("db: %w", err)
	}

	return toBusReservation(dbR)
}

func mapDup(err error) error {
	var dupErr sqldb.ErrDBDuplicatedEntry
	if !errors.As(err, &dupErr) {
		return err
	}

	switch dupErr.Column {
	case "slug", "uq_registration_pending_slug":
		return reservationbus.ErrSlugReserved
	case "checkout_id", "uq_registration_checkout":
		return reservationbus.ErrUniqueCheckout
	}

	return err
}

// Package staffdb contains staff related CRUD functionality.
package staffdb

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/business/domain/staffbus"
	"github.com/jcpaschoal/gymhub/business/sdk/sqldb"
	"github.com/jcpaschoal/gymhub/foundation/logger"
	"github.com/jmoiron/sqlx"
)

const columns = `
	staff_id, name, email, role, password_hash, must_change_password, enabled,
	created_at, updated_at`

// Store manages the set of APIs for staff database access.
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

// Create inserts a new staff member into the database.
func (s *Store) Create(ctx context.Context, st staffbus.Staff) error {
	q := `
	INSERT INTO staff_users
		(` + columns + `)
	VALUES
		(:staff_id, :name, :email, :role, :password_hash, :must_change_password, :enabled,
		:created_at, :updated_at)`

	if err := sqldb.NamedExecContext(ctx, s.log, s.db, q, toDBStaff(st)); err != nil {
		var dupErr sqldb.ErrDBDuplicatedEntry
		if errors.As(err, &dupErr) {
			if dupErr.Column == "email" || dupErr.Column == "uq_staff_users_email" {
				return fmt.Errorf("namedexeccontext: %w", staffbus.ErrUniqueEmail)
			}
		}
		return fmt.Errorf("namedexeccontext: %w", err)
	}

	return nil
}

// Update replaces a staff document in the database.
func (s *Store) Update(ctx context.Context, st staffbus.Staff) error {
	const q = `
	UPDATE
		staff_users
	SET
		name = :name,
		role = :role,
		password_hash = :password_hash,
		must_change_password = :must_change_password,
		enabled = :enabled,
		updated_at = :updated_at
	WHERE
		staff_id = :staff_id`

	if err := sqldb.NamedExecContext(ctx, s.log, s.db, q, toDBStaff(st)); err != nil {
		return fmt.Errorf("namedexeccontext: %w", err)
	}

	return nil
}

// QueryByID gets the specified staff member from the database.
func (s *Store) QueryByID(ctx context.Context, staffID uuid.UUID) (staffbus.Staff, error) {
	data := struct {
		ID string `db:"staff_id"`
	}{
		ID: staffID.String(),
	}

	q := `
	SELECT` + columns + `
	FROM
		staff_users
	WHERE
		staff_id = :staff_id`

	return s.queryOne(ctx, q, data)
}

// QueryByEmail gets the specified staff member from the database by email.
func (s *Store) QueryByEmail(ctx context.Context, email mail.Address) (staffbus.Staff, error) {
	data := struct {
		Email string `db:"email"`
	}{
		Email: email.Address,
	}

	q := `
	SELECT` + columns + `
	FROM
		staff_users
	WHERE
		email = :email`

	return s.queryOne(ctx, q, data)
}

func (s *Store) queryOne(ctx context.Context, q string, data any) (staffbus.Staff, error) {
	var dbSt staffDB
	if err := sqldb.NamedQueryStruct(ctx, s.log, s.db, q, data, &dbSt); err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			return staffbus.Staff{}, fmt.Errorf("db: %w", staffbus.ErrNotFound)
		}
		return staffbus.Staff{}, fmt.Errorf("db: %w", err)
	}

	return toBusStaff(dbSt)
}

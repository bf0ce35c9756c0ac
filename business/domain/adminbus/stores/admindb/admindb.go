// Package admindb contains platform admin related CRUD functionality.
package admindb

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/business/domain/adminbus"
	"github.com/jcpaschoal/gymhub/business/sdk/sqldb"
	"github.com/jcpaschoal/gymhub/business/types/name"
	"github.com/jcpaschoal/gymhub/foundation/logger"
	"github.com/jmoiron/sqlx"
)

type adminDB struct {
	ID           uuid.UUID `db:"admin_id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash []byte    `db:"password_hash"`
	Enabled      bool      `db:"enabled"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func toDBAdmin(bus adminbus.Admin) adminDB {
	return adminDB{
		ID:           bus.ID,
		Name:         bus.Name.String(),
		Email:        bus.Email.Address,
		PasswordHash: bus.PasswordHash,
		Enabled:      bus.Enabled,
		CreatedAt:    bus.CreatedAt.UTC(),
		UpdatedAt:    bus.UpdatedAt.UTC(),
	}
}

func toBusAdmin(db adminDB) (adminbus.Admin, error) {
	nme, err := name.Parse(db.Name)
	if err != nil {
		return adminbus.Admin{}, fmt.Errorf("parse name: %w", err)
	}

	return adminbus.Admin{
		ID:           db.ID,
		Name:         nme,
		Email:        mail.Address{Address: db.Email},
		PasswordHash: db.PasswordHash,
		Enabled:      db.Enabled,
		CreatedAt:    db.CreatedAt.In(time.Local),
		UpdatedAt:    db.UpdatedAt.In(time.Local),
	}, nil
}

// =============================================================================

// Store manages the set of APIs for admin database access.
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

// Create inserts a new admin into the database.
func (s *Store) Create(ctx context.Context, adm adminbus.Admin) error {
	const q = `
	INSERT INTO platform_admins
		(admin_id, name, email, password_hash, enabled, created_at, updated_at)
	VALUES
		(:admin_id, :name, :email, :password_hash, :enabled, :created_at, :updated_at)`

	if err := sqldb.NamedExecContext(ctx, s.log, s.db, q, toDBAdmin(adm)); err != nil {
		var dupErr sqldb.ErrDBDuplicatedEntry
		if errors.As(err, &dupErr) {
			if dupErr.Column == "email" || dupErr.Column == "uq_platform_admins_email" {
				return fmt.Errorf("namedexeccontext: %w", adminbus.ErrUniqueEmail)
			}
		}
		return fmt.Errorf("namedexeccontext: %w", err)
	}

	return nil
}

// QueryByID gets the specified admin from the database.
func (s *Store) QueryByID(ctx context.Context, adminID uuid.UUID) (adminbus.Admin, error) {
	data := struct {
		ID string `db:"admin_id"`
	}{
		ID: adminID.String(),
	}

	const q = `
	SELECT
		admin_id, name, email, password_hash, enabled, created_at, updated_at
	FROM
		platform_admins
	WHERE
		admin_id = :admin_id`

	return s.queryOne(ctx, q, data)
}

// QueryByEmail gets the specified admin from the database by email.
func (s *Store) QueryByEmail(ctx context.Context, email mail.Address) (adminbus.Admin, error) {
	data := struct {
		Email string `db:"email"`
	}{
		Email: email.Address,
	}

	const q = `
	SELECT
		admin_id, name, email, password_hash, enabled, created_at, updated_at
	FROM
		platform_admins
	WHERE
		email = :email`

	return s.queryOne(ctx, q, data)
}

func (s *Store) queryOne(ctx context.Context, q string, data any) (adminbus.Admin, error) {
	var dbAdm adminDB
	if err := sqldb.NamedQueryStruct(ctx, s.log, s.db, q, data, &dbAdm); err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			return adminbus.Admin{}, fmt.Errorf("db: %w", adminbus.ErrNotFound)
		}
		return adminbus.Admin{}, fmt.Errorf("db: %w", err)
	}

	return toBusAdmin(dbAdm)
}

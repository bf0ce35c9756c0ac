package staffdb

import (
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/business/domain/staffbus"
	"github.com/jcpaschoal/gymhub/business/types/name"
	"github.com/jcpaschoal/gymhub/business/types/role"
)

type staffDB struct {
	ID                 uuid.UUID `db:"staff_id"`
	Name               string    `db:"name"`
	Email              string    `db:"email"`
	Role               string    `db:"role"`
	PasswordHash       []byte    `db:"password_hash"`
	MustChangePassword bool      `db:"must_change_password"`
	Enabled            bool      `db:"enabled"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

func toDBStaff(bus staffbus.Staff) staffDB {
	return staffDB{
		ID:                 bus.ID,
		Name:               bus.Name.String(),
		Email:              bus.Email.Address,
		Role:               bus.Role.String(),
		PasswordHash:       bus.PasswordHash,
		MustChangePassword: bus.MustChangePassword,
		Enabled:            bus.Enabled,
		CreatedAt:          bus.CreatedAt.UTC(),
		UpdatedAt:          bus.UpdatedAt.UTC(),
	}
}

func toBusStaff(db staffDB) (staffbus.Staff, error) {
	nme, err := name.Parse(db.Name)
	if err != nil {
		return staffbus.Staff{}, fmt.Errorf("parse name: %w", err)
	}

	rle, err := role.Parse(db.Role)
	if err != nil {
		return staffbus.Staff{}, fmt.Errorf("parse role: %w", err)
	}

	bus := staffbus.Staff{
		ID:                 db.ID,
		Name:               nme,
		Email:              mail.Address{Address: db.Email},
		Role:               rle,
		PasswordHash:       db.PasswordHash,
		MustChangePassword: db.MustChangePassword,
		Enabled:            db.Enabled,
		CreatedAt:          db.CreatedAt.In(time.Local),
		UpdatedAt:          db.UpdatedAt.In(time.Local),
	}

	return bus, nil
}

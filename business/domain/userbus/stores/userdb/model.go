package userdb

import (
	"database/sql"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/business/domain/userbus"
	"github.com/jcpaschoal/gymhub/business/types/name"
	"github.com/jcpaschoal/gymhub/business/types/phone"
)

type userDB struct {
	ID        uuid.UUID      `db:"user_id"`
	Name      string         `db:"name"`
	Email     string         `db:"email"`
	Phone     sql.NullString `db:"phone"`
	Blocked   bool           `db:"blocked"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func toDBUser(bus userbus.User) userDB {
	return userDB{
		ID:        bus.ID,
		Name:      bus.Name.String(),
		Email:     bus.Email.Address,
		Phone:     phone.ToSQLNullString(bus.Phone),
		Blocked:   bus.Blocked,
		CreatedAt: bus.CreatedAt.UTC(),
		UpdatedAt: bus.UpdatedAt.UTC(),
	}
}

func toBusUser(db userDB) (userbus.User, error) {
	addr := mail.Address{
		Address: db.Email,
	}

	nme, err := name.Parse(db.Name)
	if err != nil {
		return userbus.User{}, fmt.Errorf("parse name: %w", err)
	}

	phn, err := phone.ParseNull(db.Phone.String)
	if err != nil {
		return userbus.User{}, fmt.Errorf("parse phone: %w", err)
	}

	bus := userbus.User{
		ID:        db.ID,
		Name:      nme,
		Email:     addr,
		Phone:     phn,
		Blocked:   db.Blocked,
		CreatedAt: db.CreatedAt.In(time.Local),
		UpdatedAt: db.UpdatedAt.In(time.Local),
	}

	return bus, nil
}

func toBusUsers(dbs []userDB) ([]userbus.User, error) {
	bus := make([]userbus.User, len(dbs))

	for i, db := range dbs {
		var err error
		bus[i], err = toBusUser(db)
		if err != nil {
			return nil, err
		}
	}

	return bus, nil
}

package userbus

import (
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/business/types/name"
	"github.com/jcpaschoal/gymhub/business/types/phone"
)

// User is a gym member who buys and uses passes.
type User struct {
	ID        uuid.UUID
	Name      name.Name
	Email     mail.Address
	Phone     phone.Null
	Blocked   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser contains information needed to create a new user.
type NewUser struct {
	Name  name.Name
	Email mail.Address
	Phone phone.Null
}

// UpdateUser contains information needed to update a user.
type UpdateUser struct {
	Name    *name.Name
	Email   *mail.Address
	Phone   *phone.Null
	Blocked *bool
}

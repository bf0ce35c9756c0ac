package adminbus

import (
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/business/types/name"
	"github.com/jcpaschoal/gymhub/business/types/password"
)

// Admin is an operator of the platform, above any single gym.
type Admin struct {
	ID           uuid.UUID
	Name         name.Name
	Email        mail.Address
	PasswordHash []byte
	Enabled      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewAdmin contains information needed to create a new platform admin.
type NewAdmin struct {
	Name     name.Name
	Email    mail.Address
	Password password.Password
}

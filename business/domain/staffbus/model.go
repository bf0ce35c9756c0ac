package staffbus

import (
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/business/types/name"
	"github.com/jcpaschoal/gymhub/business/types/password"
	"github.com/jcpaschoal/gymhub/business/types/role"
)

// Staff is a gym employee who signs in to scan and manage passes.
type Staff struct {
	ID                 uuid.UUID
	Name               name.Name
	Email              mail.Address
	Role               role.Role
	PasswordHash       []byte
	MustChangePassword bool
	Enabled            bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewStaff contains information needed to create a new staff member.
type NewStaff struct {
	Name               name.Name
	Email              mail.Address
	Role               role.Role
	Password           password.Password
	MustChangePassword bool
}

// UpdateStaff contains information needed to update a staff member.
type UpdateStaff struct {
	Name    *name.Name
	Role    *role.Role
	Enabled *bool
}

package authapp

import (
	"encoding/json"
	"fmt"

	"github.com/jcpaschoal/gymhub/app/sdk/errs"
	"github.com/jcpaschoal/gymhub/business/types/password"
)

// Token is returned after a successful sign in.
type Token struct {
	Token              string `json:"token"`
	Role               string `json:"role"`
	Tenant             string `json:"tenant,omitempty"`
	MustChangePassword bool   `json:"mustChangePassword"`
}

// Encode implements the web.Encoder interface.
func (t Token) Encode() ([]byte, string, error) {
	data, err := json.Marshal(t)
	return data, "application/json", err
}

// =============================================================================

// Login holds the credentials of a sign in.
type Login struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Decode implements the web.Decoder interface.
func (app *Login) Decode(data []byte) error {
	return json.Unmarshal(data, app)
}

// Validate checks the data in the model is considered clean.
func (app Login) Validate() error {
	if err := errs.Check(app); err != nil {
		return errs.New(errs.InvalidArgument, fmt.Errorf("validate: %w", err))
	}
	return nil
}

// =============================================================================

// ChangePassword replaces the caller's password.
type ChangePassword struct {
	Password        string `json:"password" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,nefield=Password"`
	PasswordConfirm string `json:"passwordConfirm" validate:"eqfield=NewPassword"`
}

// Decode implements the web.Decoder interface.
func (app *ChangePassword) Decode(data []byte) error {
	return json.Unmarshal(data, app)
}

// Validate checks the data in the model is considered clean.
func (app ChangePassword) Validate() error {
	if err := errs.Check(app); err != nil {
		return errs.New(errs.InvalidArgument, fmt.Errorf("validate: %w", err))
	}
	return nil
}

func toBusPassword(app ChangePassword) (password.Password, error) {
	return password.Parse(app.NewPassword)
}

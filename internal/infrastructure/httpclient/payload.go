package httpclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/99minutos/session-client/internal/core/domain"
)

// wireID accepts user ids sent either as JSON numbers or strings.
type wireID string

func (id *wireID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = wireID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*id = wireID(strconv.FormatInt(i, 10))
		return nil
	}
	*id = wireID(n.String())
	return nil
}

type wireAddress struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// wireUser is a user as the server sends it. Pointer fields distinguish an
// absent field from an empty one, which matters for profile patches.
type wireUser struct {
	ID           wireID       `json:"id" validate:"required"`
	FirstName    *string      `json:"first_name"`
	LastName     *string      `json:"last_name"`
	Email        *string      `json:"email"`
	Phone        *string      `json:"phone"`
	Address      *wireAddress `json:"address"`
	ProfileImage *string      `json:"profile_image"`
	Role         *string      `json:"role" validate:"omitempty,oneof=customer provider admin"`
}

type authResponse struct {
	User  *wireUser `json:"user" validate:"required"`
	Token string    `json:"token" validate:"required"`
}

type userResponse struct {
	User *wireUser `json:"user" validate:"required"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type registerRequest struct {
	FirstName string       `json:"first_name"`
	LastName  string       `json:"last_name"`
	Email     string       `json:"email"`
	Phone     string       `json:"phone,omitempty"`
	Password  string       `json:"password"`
	Role      string       `json:"role,omitempty"`
	Address   *wireAddress `json:"address,omitempty"`
}

type profileRequest struct {
	FirstName    *string      `json:"first_name,omitempty"`
	LastName     *string      `json:"last_name,omitempty"`
	Email        *string      `json:"email,omitempty"`
	Phone        *string      `json:"phone,omitempty"`
	Address      *wireAddress `json:"address,omitempty"`
	ProfileImage *string      `json:"profile_image,omitempty"`
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// mapper validates wire payloads and converts them to domain values.
type mapper struct {
	validate *validator.Validate
}

func newMapper() mapper {
	return mapper{validate: validator.New(validator.WithRequiredStructEnabled())}
}

func (m mapper) check(v any) error {
	if err := m.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	return nil
}

func (m mapper) authPayload(r authResponse) (domain.AuthPayload, error) {
	if err := m.check(r); err != nil {
		return domain.AuthPayload{}, err
	}
	user, err := m.user(r.User)
	if err != nil {
		return domain.AuthPayload{}, err
	}
	return domain.AuthPayload{User: user, Token: r.Token}, nil
}

// user maps a full user; unlike a patch it must carry a role.
func (m mapper) user(w *wireUser) (domain.User, error) {
	if err := m.check(w); err != nil {
		return domain.User{}, err
	}
	if err := m.validate.Var(w.Role, "required"); err != nil {
		return domain.User{}, fmt.Errorf("%w: user role missing", domain.ErrInvalidPayload)
	}
	return domain.User{}.Merge(m.patchOf(w)), nil
}

func (m mapper) patch(w *wireUser) (domain.UserPatch, error) {
	if err := m.check(w); err != nil {
		return domain.UserPatch{}, err
	}
	return m.patchOf(w), nil
}

func (m mapper) patchOf(w *wireUser) domain.UserPatch {
	p := domain.UserPatch{
		ID:           string(w.ID),
		FirstName:    w.FirstName,
		LastName:     w.LastName,
		Email:        w.Email,
		Phone:        w.Phone,
		ProfileImage: w.ProfileImage,
		Address:      addressFromWire(w.Address),
	}
	if w.Role != nil {
		r := domain.Role(*w.Role)
		p.Role = &r
	}
	return p
}

func addressFromWire(a *wireAddress) *domain.Address {
	if a == nil {
		return nil
	}
	return &domain.Address{
		Street:     a.Street,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

func addressToWire(a *domain.Address) *wireAddress {
	if a == nil {
		return nil
	}
	return &wireAddress{
		Street:     a.Street,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

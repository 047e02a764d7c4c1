package authtest

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

type registerRequest struct {
	FirstName string   `json:"first_name" validate:"required"`
	LastName  string   `json:"last_name"`
	Email     string   `json:"email" validate:"required,email"`
	Phone     string   `json:"phone"`
	Password  string   `json:"password" validate:"required,min=6"`
	Role      string   `json:"role" validate:"omitempty,oneof=customer provider admin"`
	Address   *address `json:"address"`
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type profileRequest struct {
	FirstName    *string  `json:"first_name"`
	LastName     *string  `json:"last_name"`
	Email        *string  `json:"email" validate:"omitempty,email"`
	Phone        *string  `json:"phone"`
	Address      *address `json:"address"`
	ProfileImage *string  `json:"profile_image"`
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

type authResponse struct {
	User  *user  `json:"user"`
	Token string `json:"token"`
}

type userResponse struct {
	User any `json:"user"`
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return c.Validate(req)
}

func (s *Server) register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.Role == "" {
		req.Role = roleCustomer
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[req.Email]; exists {
		return errUserExists
	}
	s.nextID++
	u := &user{
		ID:           s.nextID,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Phone:        req.Phone,
		Address:      req.Address,
		Role:         req.Role,
		passwordHash: hash,
	}
	s.users[u.Email] = u

	token, err := s.issueToken(u)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, authResponse{User: u, Token: token})
}

func (s *Server) login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[req.Identifier]
	if !ok || bcrypt.CompareHashAndPassword(u.passwordHash, []byte(req.Password)) != nil {
		return errInvalidCredentials
	}

	token, err := s.issueToken(u)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, authResponse{User: u, Token: token})
}

func (s *Server) logout(c echo.Context) error {
	jti, _ := c.Get(ctxTokenID).(string)

	s.mu.Lock()
	delete(s.sessions, jti)
	s.mu.Unlock()

	return c.NoContent(http.StatusNoContent)
}

func (s *Server) me(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.current(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{User: u})
}

// updateProfile applies the submitted fields and echoes back only the id and
// the fields that changed.
func (s *Server) updateProfile(c echo.Context) error {
	var req profileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.current(c)
	if err != nil {
		return err
	}

	changed := map[string]any{"id": u.ID}
	set := func(field string, dst *string, v *string) {
		if v != nil {
			*dst = *v
			changed[field] = *v
		}
	}
	set("first_name", &u.FirstName, req.FirstName)
	set("last_name", &u.LastName, req.LastName)
	set("phone", &u.Phone, req.Phone)
	set("profile_image", &u.ProfileImage, req.ProfileImage)
	if req.Address != nil {
		u.Address = req.Address
		changed["address"] = req.Address
	}
	if req.Email != nil && *req.Email != u.Email {
		if _, taken := s.users[*req.Email]; taken {
			return errUserExists
		}
		delete(s.users, u.Email)
		u.Email = *req.Email
		s.users[u.Email] = u
		changed["email"] = u.Email
	}

	return c.JSON(http.StatusOK, userResponse{User: changed})
}

func (s *Server) changePassword(c echo.Context) error {
	var req passwordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.current(c)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword(u.passwordHash, []byte(req.CurrentPassword)) != nil {
		return errWrongPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.MinCost)
	if err != nil {
		return err
	}
	u.passwordHash = hash
	return c.NoContent(http.StatusNoContent)
}

// current resolves the authenticated user. Callers hold s.mu.
func (s *Server) current(c echo.Context) (*user, error) {
	id, _ := c.Get(ctxUserID).(int64)
	u := s.userByID(id)
	if u == nil {
		return nil, errUserNotFound
	}
	return u, nil
}

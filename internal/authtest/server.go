// Package authtest is an in-process auth server implementing the endpoints the
// session client talks to. It backs the client's end-to-end tests and the
// CLI's tests; it is not meant for production use.
package authtest

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

var (
	errUserExists         = errors.New("user already exists")
	errInvalidCredentials = errors.New("invalid credentials")
	errWrongPassword      = errors.New("current password is incorrect")
	errUserNotFound       = errors.New("user not found")
)

// Role names accepted at registration.
const (
	roleCustomer = "customer"
	roleProvider = "provider"
	roleAdmin    = "admin"
)

type address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// user is the server-side account. IDs are numeric on the wire.
type user struct {
	ID           int64    `json:"id"`
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	Email        string   `json:"email"`
	Phone        string   `json:"phone,omitempty"`
	Address      *address `json:"address,omitempty"`
	ProfileImage string   `json:"profile_image,omitempty"`
	Role         string   `json:"role"`
	passwordHash []byte
}

// Server is a fake auth API backed by memory.
type Server struct {
	echo     *echo.Echo
	secret   []byte
	tokenTTL time.Duration
	log      zerolog.Logger

	mu       sync.Mutex
	nextID   int64
	users    map[string]*user // by email
	sessions map[string]int64 // live token id -> user id
	requests map[string]int   // "METHOD path" -> count
}

// Option configures a Server.
type Option func(*Server)

// WithLogger logs unexpected handler errors to log.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithTokenTTL sets the lifetime of issued tokens.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Server) { s.tokenTTL = ttl }
}

// New builds a Server with its routes registered.
func New(opts ...Option) *Server {
	s := &Server{
		secret:   []byte("authtest-secret"),
		tokenTTL: time.Hour,
		log:      zerolog.Nop(),
		users:    make(map[string]*user),
		sessions: make(map[string]int64),
		requests: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newValidator()
	e.HTTPErrorHandler = s.errorHandler
	e.Use(echomiddleware.Recover())
	e.Use(s.countRequests)

	e.POST("/auth/register", s.register)
	e.POST("/auth/login", s.login)

	authed := e.Group("/auth", s.requireToken)
	authed.POST("/logout", s.logout)
	authed.GET("/me", s.me)
	authed.PUT("/profile", s.updateProfile)
	authed.PUT("/change-password", s.changePassword)

	// Any other authenticated resource, used to provoke a 401 mid-session.
	e.GET("/orders", func(c echo.Context) error {
		return c.JSON(http.StatusOK, []any{})
	}, s.requireToken)

	s.echo = e
	return s
}

// Handler exposes the routes for use with httptest or a real listener.
func (s *Server) Handler() http.Handler { return s.echo }

// Listen starts an httptest server. Callers close it.
func (s *Server) Listen() *httptest.Server {
	return httptest.NewServer(s.echo)
}

// AddUser creates an account directly, bypassing the register endpoint.
func (s *Server) AddUser(email, password, role string) int64 {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.users[email] = &user{ID: s.nextID, Email: email, Role: role, passwordHash: hash}
	return s.nextID
}

// RevokeAll expires every live session, as if the server restarted with a new
// session table.
func (s *Server) RevokeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]int64)
}

// Requests returns how many times method and path were hit.
func (s *Server) Requests(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[method+" "+path]
}

func (s *Server) countRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		s.mu.Lock()
		s.requests[c.Request().Method+" "+c.Request().URL.Path]++
		s.mu.Unlock()
		return next(c)
	}
}

func (s *Server) issueToken(u *user) (string, error) {
	jti := newTokenID()
	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(u.ID, 10),
		"role": u.Role,
		"jti":  jti,
		"exp":  time.Now().Add(s.tokenTTL).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", err
	}
	s.sessions[jti] = u.ID
	return signed, nil
}

func (s *Server) userByID(id int64) *user {
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

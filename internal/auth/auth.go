package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourorg/comps-api/internal/redisx"
	"github.com/yourorg/comps-api/internal/store"
)

var (
	ErrFieldsRequired     = errors.New("auth: missing fields")
	ErrPasswordMismatch   = errors.New("auth: passwords differ")
	ErrPasswordTooShort   = errors.New("auth: password too short")
	ErrUsernameTaken      = errors.New("auth: username taken")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrNoSession          = errors.New("auth: no session")
)

var messages = map[error]string{
	ErrFieldsRequired:     "Please fill in all fields",
	ErrPasswordMismatch:   "Passwords don't match",
	ErrPasswordTooShort:   "Password must be at least 6 characters",
	ErrUsernameTaken:      "Username already exists",
	ErrInvalidCredentials: "Invalid username or password",
}

// Message is the form text for a signup or login failure.
func Message(err error) string {
	for e, msg := range messages {
		if errors.Is(err, e) {
			return msg
		}
	}
	return "Something went wrong, please try again"
}

const (
	MinPasswordLen = 6
	sessionPrefix  = "sess:"
	defaultTTL     = 12 * time.Hour
)

type Users interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (store.User, error)
	UserByUsername(ctx context.Context, username string) (store.User, error)
}

// Sessions is satisfied by *redisx.Client.
type Sessions interface {
	SetNX(ctx context.Context, key, val string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, key string) error
	Touch(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type Signup struct {
	Username string
	Email    string
	Password string
	Confirm  string
}

func (s Signup) validate() error {
	if strings.TrimSpace(s.Username) == "" || strings.TrimSpace(s.Email) == "" || s.Password == "" || s.Confirm == "" {
		return ErrFieldsRequired
	}
	if s.Password != s.Confirm {
		return ErrPasswordMismatch
	}
	if len(s.Password) < MinPasswordLen {
		return ErrPasswordTooShort
	}
	return nil
}

type Service struct {
	Users    Users
	Sessions Sessions
	TTL      time.Duration
	Log      *slog.Logger
	// Cost is the bcrypt cost; zero means bcrypt.DefaultCost.
	Cost int

	dummyOnce sync.Once
	dummy     []byte
}

func (s *Service) ttl() time.Duration {
	if s.TTL <= 0 {
		return defaultTTL
	}
	return s.TTL
}

func (s *Service) cost() int {
	if s.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return s.Cost
}

// dummyHash is compared against when the username is unknown.
func (s *Service) dummyHash() []byte {
	s.dummyOnce.Do(func() {
		s.dummy, _ = bcrypt.GenerateFromPassword([]byte("comps-api-no-such-user"), s.cost())
	})
	return s.dummy
}

func (s *Service) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}

// Signup validates the form and creates the account.
func (s *Service) Signup(ctx context.Context, in Signup) (store.User, error) {
	if err := in.validate(); err != nil {
		return store.User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost())
	if err != nil {
		return store.User{}, fmt.Errorf("hash password: %w", err)
	}
	u, err := s.Users.CreateUser(ctx, strings.TrimSpace(in.Username), strings.TrimSpace(in.Email), string(hash))
	if errors.Is(err, store.ErrUserExists) {
		return store.User{}, ErrUsernameTaken
	}
	if err != nil {
		return store.User{}, fmt.Errorf("create user: %w", err)
	}
	s.logger().Info("user created", "username", u.Username)
	return u, nil
}

// Login checks the password and opens a session, returning its token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.Users.UserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, store.ErrUserNotFound) {
		// Spend the same bcrypt time as a wrong password.
		_ = bcrypt.CompareHashAndPassword(s.dummyHash(), []byte(password))
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		s.logger().Warn("login rejected", "username", u.Username)
		return "", ErrInvalidCredentials
	}

	for range 3 {
		token := uuid.NewString()
		ok, err := s.Sessions.SetNX(ctx, sessionPrefix+token, u.Username, s.ttl())
		if err != nil {
			return "", fmt.Errorf("open session: %w", err)
		}
		if ok {
			return token, nil
		}
	}
	return "", errors.New("open session: token collision")
}

// Session resolves a token to its username and slides the expiry.
func (s *Service) Session(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrNoSession
	}
	name, err := s.Sessions.Get(ctx, sessionPrefix+token)
	if errors.Is(err, redisx.ErrMiss) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("read session: %w", err)
	}
	if _, err := s.Sessions.Touch(ctx, sessionPrefix+token, s.ttl()); err != nil {
		s.logger().Warn("session touch failed", "err", err)
	}
	return name, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.Sessions.Del(ctx, sessionPrefix+token)
}

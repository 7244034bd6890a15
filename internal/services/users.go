package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jamoveo/backend/internal/crypto"
	"github.com/jamoveo/backend/internal/db"
	"github.com/jamoveo/backend/internal/metrics"
	"github.com/jamoveo/backend/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrBadAdminSecret     = errors.New("invalid admin secret")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUserNotFound       = errors.New("user not found")
)

const (
	minUsernameLen = 3
	maxUsernameLen = 32
	minPasswordLen = 6
)

// UserQueries is the subset of db.Queries used by UserService.
type UserQueries interface {
	CreateUser(ctx context.Context, arg db.CreateUserParams) (db.User, error)
	GetUserByUsername(ctx context.Context, username string) (db.User, error)
	GetUserByID(ctx context.Context, id int64) (db.User, error)
}

// UserService registers users and exchanges credentials for tokens.
type UserService struct {
	queries     UserQueries
	auth        *AuthService
	adminSecret string
}

// NewUserService creates a UserService. An empty adminSecret disables admin registration.
func NewUserService(queries UserQueries, auth *AuthService, adminSecret string) *UserService {
	return &UserService{queries: queries, auth: auth, adminSecret: adminSecret}
}

// Register creates a player account.
func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (models.UserResponse, error) {
	instrument := strings.ToLower(strings.TrimSpace(req.Instrument))
	if instrument == "" || !models.ValidInstrument(instrument) {
		return models.UserResponse{}, fmt.Errorf("%w: unknown instrument %q", ErrInvalidInput, req.Instrument)
	}
	resp, err := s.create(ctx, req.Username, req.Password, models.RolePlayer, instrument)
	metrics.AuthAttempts.WithLabelValues("register", outcome(err)).Inc()
	return resp, err
}

// RegisterAdmin creates an admin account. The caller must present the configured admin secret.
func (s *UserService) RegisterAdmin(ctx context.Context, req models.RegisterAdminRequest) (models.UserResponse, error) {
	if s.adminSecret == "" || !crypto.EqualSecret(req.AdminSecret, s.adminSecret) {
		metrics.AuthAttempts.WithLabelValues("register_admin", "denied").Inc()
		return models.UserResponse{}, ErrBadAdminSecret
	}
	resp, err := s.create(ctx, req.Username, req.Password, models.RoleAdmin, "")
	metrics.AuthAttempts.WithLabelValues("register_admin", outcome(err)).Inc()
	return resp, err
}

// Login checks credentials and returns the user with a fresh token.
func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (models.UserResponse, error) {
	user, err := s.queries.GetUserByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			metrics.AuthAttempts.WithLabelValues("login", "denied").Inc()
			return models.UserResponse{}, ErrInvalidCredentials
		}
		return models.UserResponse{}, fmt.Errorf("lookup user: %w", err)
	}
	if err := crypto.CheckPassword(user.PasswordHash, req.Password); err != nil {
		metrics.AuthAttempts.WithLabelValues("login", "denied").Inc()
		return models.UserResponse{}, ErrInvalidCredentials
	}

	resp, err := s.withToken(user)
	metrics.AuthAttempts.WithLabelValues("login", outcome(err)).Inc()
	return resp, err
}

// Get returns the user with the given id, without a token.
func (s *UserService) Get(ctx context.Context, id int64) (models.UserResponse, error) {
	user, err := s.queries.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.UserResponse{}, ErrUserNotFound
		}
		return models.UserResponse{}, fmt.Errorf("lookup user: %w", err)
	}
	return toUserResponse(user), nil
}

func (s *UserService) create(ctx context.Context, username, password string, role models.Role, instrument string) (models.UserResponse, error) {
	username = strings.TrimSpace(username)
	if n := len(username); n < minUsernameLen || n > maxUsernameLen {
		return models.UserResponse{}, fmt.Errorf("%w: username must be %d-%d characters", ErrInvalidInput, minUsernameLen, maxUsernameLen)
	}
	if len(password) < minPasswordLen {
		return models.UserResponse{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLen)
	}

	if _, err := s.queries.GetUserByUsername(ctx, username); err == nil {
		return models.UserResponse{}, ErrUsernameTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return models.UserResponse{}, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return models.UserResponse{}, err
	}

	user, err := s.queries.CreateUser(ctx, db.CreateUserParams{
		Username:     username,
		PasswordHash: hash,
		Role:         string(role),
		Instrument:   instrument,
	})
	if err != nil {
		// Lost a race with a concurrent registration.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return models.UserResponse{}, ErrUsernameTaken
		}
		return models.UserResponse{}, fmt.Errorf("create user: %w", err)
	}
	return s.withToken(user)
}

func (s *UserService) withToken(user db.User) (models.UserResponse, error) {
	resp := toUserResponse(user)
	token, err := s.auth.GenerateToken(user.ID, user.Username, resp.Role, user.Instrument)
	if err != nil {
		return models.UserResponse{}, fmt.Errorf("generate token: %w", err)
	}
	resp.Token = token
	return resp, nil
}

func toUserResponse(u db.User) models.UserResponse {
	return models.UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		Role:       models.Role(u.Role),
		Instrument: u.Instrument,
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

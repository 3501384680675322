package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"society/internal/auth"
	"society/internal/core"
	"society/internal/ledger"
)

// LoginResult is a signed token and the user it was issued to.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      core.User `json:"user"`
}

type UserService struct {
	store  ledger.UserStore
	tokens *auth.TokenIssuer
}

func NewUserService(store ledger.UserStore, tokens *auth.TokenIssuer) *UserService {
	return &UserService{store: store, tokens: tokens}
}

// Login accepts an email, username or mobile number with a password.
func (s *UserService) Login(ctx context.Context, login, password string) (*LoginResult, error) {
	if strings.TrimSpace(login) == "" || password == "" {
		return nil, core.NewValidationError("login", "login and password are required")
	}
	u, err := s.store.FindUserByLogin(ctx, login)
	if errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("unknown login: %w", core.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		return nil, err
	}
	token, exp, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "User logged in", "user_id", u.ID, "role", string(u.Role))
	return &LoginResult{Token: token, ExpiresAt: exp, User: u}, nil
}

// CreateUser registers a user; the role defaults to viewer.
func (s *UserService) CreateUser(ctx context.Context, u core.User, password string) (core.User, error) {
	if u.Role == "" {
		u.Role = core.RoleViewer
	}
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return core.User{}, err
	}
	u.PasswordHash = hash
	created, err := s.store.CreateUser(ctx, u)
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

func (s *UserService) UpdateUser(ctx context.Context, u core.User) (core.User, error) {
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	updated, err := s.store.UpdateUser(ctx, u)
	if err != nil {
		return core.User{}, fmt.Errorf("update user: %w", err)
	}
	return updated, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	return s.store.DeleteUser(ctx, id)
}

func (s *UserService) GetUser(ctx context.Context, id int64) (core.User, error) {
	return s.store.GetUser(ctx, id)
}

func (s *UserService) ListUsers(ctx context.Context) ([]core.User, error) {
	return s.store.ListUsers(ctx)
}

// ChangePassword replaces the password after checking the current one.
func (s *UserService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := auth.CheckPassword(u.PasswordHash, current); err != nil {
		return err
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	return s.store.SetPasswordHash(ctx, userID, hash)
}

// EnsureAdmin creates the system admin used as the fallback actor unless an
// admin already exists. It runs from the seed command, never from a request.
func EnsureAdmin(ctx context.Context, store ledger.UserStore, name, email, password string) (core.User, bool, error) {
	users, err := store.ListUsers(ctx)
	if err != nil {
		return core.User{}, false, err
	}
	var admin *core.User
	for i := range users {
		if users[i].Role == core.RoleAdmin && (admin == nil || users[i].ID < admin.ID) {
			admin = &users[i]
		}
	}
	if admin != nil {
		return *admin, false, nil
	}
	u := core.User{Name: name, Email: email, Role: core.RoleAdmin, Status: "Active"}
	if err := u.Validate(); err != nil {
		return core.User{}, false, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return core.User{}, false, err
	}
	u.PasswordHash = hash
	created, err := store.CreateUser(ctx, u)
	if err != nil {
		return core.User{}, false, fmt.Errorf("create system admin: %w", err)
	}
	return created, true, nil
}

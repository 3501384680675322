package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"society/internal/core"
)

// LoginRequest accepts an email, username or mobile number as login. Email
// is kept for clients that send it under that name.
type LoginRequest struct {
	Login    string `json:"login" validate:"required_without=Email"`
	Email    string `json:"email" validate:"omitempty"`
	Password string `json:"password" validate:"required"`
}

type CreateUserRequest struct {
	Name     string    `json:"name" validate:"required,max=100"`
	Email    string    `json:"email" validate:"omitempty,email"`
	Username string    `json:"username" validate:"omitempty,max=50"`
	Mobile   string    `json:"mobile" validate:"omitempty,max=20"`
	Password string    `json:"password" validate:"required,min=8,max=72"`
	Role     core.Role `json:"role" validate:"omitempty,oneof=admin manager viewer"`
	Status   string    `json:"status" validate:"omitempty,oneof=Active Inactive"`
}

// UpdateUserRequest changes profile fields; empty fields keep their value.
type UpdateUserRequest struct {
	Name     string    `json:"name" validate:"omitempty,max=100"`
	Email    string    `json:"email" validate:"omitempty,email"`
	Username string    `json:"username" validate:"omitempty,max=50"`
	Mobile   string    `json:"mobile" validate:"omitempty,max=20"`
	Role     core.Role `json:"role" validate:"omitempty,oneof=admin manager viewer"`
	Status   string    `json:"status" validate:"omitempty,oneof=Active Inactive"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72,nefield=CurrentPassword"`
}

type DeleteFlagRequest struct {
	DeleteEnabled *bool `json:"delete_enabled" validate:"required"`
}

type DeleteFlagResponse struct {
	DeleteEnabled bool `json:"delete_enabled"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) error {
	var req LoginRequest
	if err := s.decodeJSON(r, &req); err != nil {
		return err
	}
	login := strings.TrimSpace(req.Login)
	if login == "" {
		login = strings.TrimSpace(req.Email)
	}
	res, err := s.svc.Users.Login(r.Context(), login, req.Password)
	if err != nil {
		if errors.Is(err, core.ErrUnauthorized) {
			return fmt.Errorf("invalid credentials: %w", core.ErrUnauthorized)
		}
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) error {
	u, err := s.svc.Users.GetUser(r.Context(), tokenUserID(r.Context()))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, u)
	return nil
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) error {
	var req ChangePasswordRequest
	if err := s.decodeJSON(r, &req); err != nil {
		return err
	}
	if err := s.svc.Users.ChangePassword(r.Context(), tokenUserID(r.Context()), req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	writeMessage(w, http.StatusOK, "Password changed successfully")
	return nil
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) error {
	users, err := s.svc.Users.ListUsers(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, orEmpty(users))
	return nil
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	u, err := s.svc.Users.GetUser(r.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, u)
	return nil
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) error {
	var req CreateUserRequest
	if err := s.decodeJSON(r, &req); err != nil {
		return err
	}
	status := req.Status
	if status == "" {
		status = "Active"
	}
	u, err := s.svc.Users.CreateUser(r.Context(), core.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.TrimSpace(req.Email),
		Username: strings.TrimSpace(req.Username),
		Mobile:   strings.TrimSpace(req.Mobile),
		Role:     req.Role,
		Status:   status,
	}, req.Password)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, u)
	return nil
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	var req UpdateUserRequest
	if err := s.decodeJSON(r, &req); err != nil {
		return err
	}
	u, err := s.svc.Users.GetUser(r.Context(), id)
	if err != nil {
		return err
	}
	if id == tokenUserID(r.Context()) && req.Role != "" && req.Role != core.RoleAdmin {
		return core.NewValidationError("role", "cannot remove your own admin role")
	}
	if v := strings.TrimSpace(req.Name); v != "" {
		u.Name = v
	}
	if v := strings.TrimSpace(req.Email); v != "" {
		u.Email = v
	}
	if v := strings.TrimSpace(req.Username); v != "" {
		u.Username = v
	}
	if v := strings.TrimSpace(req.Mobile); v != "" {
		u.Mobile = v
	}
	if req.Role != "" {
		u.Role = req.Role
	}
	if req.Status != "" {
		u.Status = req.Status
	}
	updated, err := s.svc.Users.UpdateUser(r.Context(), u)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, updated)
	return nil
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	if id == tokenUserID(r.Context()) {
		return core.NewValidationError("id", "cannot delete your own account")
	}
	if err := s.svc.Users.DeleteUser(r.Context(), id); err != nil {
		return err
	}
	writeMessage(w, http.StatusOK, "User deleted successfully")
	return nil
}

func (s *Server) handleGetDeleteEnabled(w http.ResponseWriter, r *http.Request) error {
	enabled, err := s.svc.Ledger.DeleteEnabled(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, DeleteFlagResponse{DeleteEnabled: enabled})
	return nil
}

func (s *Server) handleSetDeleteEnabled(w http.ResponseWriter, r *http.Request) error {
	var req DeleteFlagRequest
	if err := s.decodeJSON(r, &req); err != nil {
		return err
	}
	if err := s.svc.Ledger.SetDeleteEnabled(r.Context(), *req.DeleteEnabled); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, DeleteFlagResponse{DeleteEnabled: *req.DeleteEnabled})
	return nil
}

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"society/internal/auth"
	"society/internal/core"
	"society/internal/ledger/memory"
)

func TestLogin(t *testing.T) {
	store := memory.New()
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	svc := NewUserService(store, tokens)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, core.User{Name: "Manager", Email: "m@society.test", Mobile: "9800000001"}, "s3cret-pass")
	if err != nil {
		t.Fatal(err)
	}
	if u.Role != core.RoleViewer {
		t.Errorf("expected default role viewer, got %q", u.Role)
	}

	tests := []struct {
		name    string
		login   string
		pass    string
		wantErr error
	}{
		{"email", "M@Society.test", "s3cret-pass", nil},
		{"mobile", "9800000001", "s3cret-pass", nil},
		{"wrong password", "m@society.test", "nope-nope", core.ErrUnauthorized},
		{"unknown login", "ghost@society.test", "s3cret-pass", core.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Login(ctx, tt.login, tt.pass)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			claims, err := tokens.Parse(res.Token)
			if err != nil {
				t.Fatal(err)
			}
			if claims.UserID != u.ID || res.User.ID != u.ID {
				t.Fatalf("token issued for %d, want %d", claims.UserID, u.ID)
			}
		})
	}

	if _, err := svc.Login(ctx, " ", ""); !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	store := memory.New()
	svc := NewUserService(store, auth.NewTokenIssuer("k", time.Hour))
	ctx := context.Background()
	u, err := svc.CreateUser(ctx, core.User{Name: "A", Username: "alpha"}, "first-pass")
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.ChangePassword(ctx, u.ID, "wrong-pass", "second-pass"); !errors.Is(err, core.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := svc.ChangePassword(ctx, u.ID, "first-pass", "second-pass"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Login(ctx, "alpha", "second-pass"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestEnsureAdmin(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	admin, created, err := EnsureAdmin(ctx, store, "System Admin", "admin@society.test", "admin-pass")
	if err != nil {
		t.Fatal(err)
	}
	if !created || admin.Role != core.RoleAdmin {
		t.Fatalf("expected a new admin, got %+v created=%v", admin, created)
	}

	again, created, err := EnsureAdmin(ctx, store, "Other", "other@society.test", "admin-pass")
	if err != nil {
		t.Fatal(err)
	}
	if created || again.ID != admin.ID {
		t.Fatalf("second run must reuse admin %d, got %+v created=%v", admin.ID, again, created)
	}
	users, _ := store.ListUsers(ctx)
	if len(users) != 1 {
		t.Fatalf("expected exactly one user, got %d", len(users))
	}
}

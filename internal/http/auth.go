package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"society/internal/auth"
	"society/internal/core"
	"society/internal/log"
)

type claimsKey struct{}

func claimsFrom(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsKey{}).(*auth.Claims)
	return c
}

// tokenUserID is the acting user of the request, or 0 when unknown.
func tokenUserID(ctx context.Context) int64 {
	if c := claimsFrom(ctx); c != nil {
		return c.UserID
	}
	return 0
}

func (s *Server) authenticate(r *http.Request) (*auth.Claims, error) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("missing bearer token: %w", core.ErrUnauthorized)
	}
	return s.svc.Tokens.Parse(strings.TrimSpace(token))
}

// authed requires a valid token and stores its claims in the request context.
func (s *Server) authed(h apiHandler) http.HandlerFunc {
	return s.handle(func(w http.ResponseWriter, r *http.Request) error {
		claims, err := s.authenticate(r)
		if err != nil {
			return err
		}
		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		logger := log.FromContext(ctx).With(log.FieldUserID, claims.UserID)
		ctx = log.IntoContext(ctx, logger)
		return h(w, r.WithContext(ctx))
	})
}

// writer additionally requires a role that may change ledger records.
func (s *Server) writer(h apiHandler) http.HandlerFunc {
	return s.authed(func(w http.ResponseWriter, r *http.Request) error {
		if c := claimsFrom(r.Context()); !c.Role.CanWrite() {
			return fmt.Errorf("role %s cannot modify records: %w", c.Role, core.ErrForbidden)
		}
		return h(w, r)
	})
}

func (s *Server) admin(h apiHandler) http.HandlerFunc {
	return s.authed(func(w http.ResponseWriter, r *http.Request) error {
		if c := claimsFrom(r.Context()); c.Role != core.RoleAdmin {
			return fmt.Errorf("admin role required: %w", core.ErrForbidden)
		}
		return h(w, r)
	})
}

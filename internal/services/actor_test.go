package services

import (
	"testing"

	"society/internal/core"
)

func TestResolveActor(t *testing.T) {
	tests := []struct {
		name  string
		token int64
		body  int64
		want  core.Actor
	}{
		{"token wins", 3, 9, core.Actor{UserID: 3, Source: core.ActorFromToken}},
		{"body when no token", 0, 9, core.Actor{UserID: 9, Source: core.ActorFromBody}},
		{"fallback", 0, 0, core.Actor{Source: core.ActorFallback}},
		{"negative ids ignored", -1, -2, core.Actor{Source: core.ActorFallback}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveActor(tt.token, tt.body); got != tt.want {
				t.Errorf("ResolveActor(%d, %d) = %+v, want %+v", tt.token, tt.body, got, tt.want)
			}
		})
	}
}

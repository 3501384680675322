package services

import "society/internal/core"

// ResolveActor returns the user a write is attributed to, checking sources
// in order: the authenticated token, then a user id supplied in the request
// body. With neither, the result is a Fallback actor that the store resolves
// to the seeded system admin.
func ResolveActor(tokenUserID, bodyUserID int64) core.Actor {
	candidates := []core.Actor{
		{UserID: tokenUserID, Source: core.ActorFromToken},
		{UserID: bodyUserID, Source: core.ActorFromBody},
	}
	for _, c := range candidates {
		if c.UserID > 0 {
			return c
		}
	}
	return core.Actor{Source: core.ActorFallback}
}

package identity

import (
	"context"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleUser:
		return RoleUser, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

// Actor is the authenticated caller. EntityID is zero when the user has
// no owning entity.
type Actor struct {
	UserID   snowflake.ID
	EntityID snowflake.ID
	Role     Role
}

func (a Actor) HasEntity() bool {
	return a.EntityID != 0
}

// Subject is the casbin subject for the actor.
func (a Actor) Subject() string {
	return "user:" + a.UserID.String()
}

type actorContextKey struct{}

// WithActor stores the actor in the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the actor from context, if set.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	if !ok || actor.UserID == 0 {
		return Actor{}, false
	}
	return actor, true
}

// NormalizeEmail validates an address and lower-cases it.
func NormalizeEmail(raw string) (string, bool) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), true
}

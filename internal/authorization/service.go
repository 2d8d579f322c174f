package authorization

import (
	"context"
	"errors"

	"github.com/srithedesigner/credmatrix-backend/internal/identity"
)

type Service interface {
	// Authorize returns nil when the actor's stored role grants action on
	// object, ErrForbidden otherwise.
	Authorize(ctx context.Context, actor identity.Actor, object string, action string) error
}

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)

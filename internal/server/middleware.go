package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/srithedesigner/credmatrix-backend/internal/identity"
	obscontext "github.com/srithedesigner/credmatrix-backend/internal/observability/context"
)

const (
	headerAuthorization = "Authorization"
	bearerPrefix        = "bearer "
	contextActorKey     = "actor"
)

// AuthRequired resolves the bearer access token into an actor and stores it
// on both the gin and request contexts.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(headerAuthorization))
		if len(raw) <= len(bearerPrefix) || !strings.EqualFold(raw[:len(bearerPrefix)], bearerPrefix) {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		accessToken := strings.TrimSpace(raw[len(bearerPrefix):])
		if accessToken == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		actor, err := s.authSvc.Authenticate(c.Request.Context(), accessToken)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := identity.WithActor(c.Request.Context(), actor)
		ctx = obscontext.WithActor(ctx, "user", actor.UserID.String())
		if actor.HasEntity() {
			ctx = obscontext.WithEntityID(ctx, actor.EntityID.String())
		}
		ctx = obscontext.WithClientInfo(ctx, c.ClientIP(), c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextActorKey, actor)
		c.Next()
	}
}

// authorize checks the casbin policy for the authenticated actor.
func (s *Server) authorize(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFrom(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), actor, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func actorFrom(c *gin.Context) (identity.Actor, bool) {
	value, ok := c.Get(contextActorKey)
	if !ok {
		return identity.ActorFromContext(c.Request.Context())
	}
	actor, ok := value.(identity.Actor)
	if !ok || actor.UserID == 0 {
		return identity.Actor{}, false
	}
	return actor, true
}

// mustActor aborts with 401 when no actor was resolved.
func mustActor(c *gin.Context) (identity.Actor, bool) {
	actor, ok := actorFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
	}
	return actor, ok
}

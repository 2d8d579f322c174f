package auth

import (
	"github.com/srithedesigner/credmatrix-backend/internal/auth/repository"
	"github.com/srithedesigner/credmatrix-backend/internal/auth/service"
	"github.com/srithedesigner/credmatrix-backend/internal/auth/session"
	"github.com/srithedesigner/credmatrix-backend/internal/auth/token"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(token.NewIssuer),
	fx.Provide(service.New),
	fx.Provide(session.NewManager),
)

package otp

import (
	"github.com/srithedesigner/credmatrix-backend/internal/otp/repository"
	"github.com/srithedesigner/credmatrix-backend/internal/otp/service"
	"go.uber.org/fx"
)

var Module = fx.Module("otp.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)

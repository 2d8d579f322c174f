package entity

import (
	"github.com/srithedesigner/credmatrix-backend/internal/entity/repository"
	"github.com/srithedesigner/credmatrix-backend/internal/entity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("entity.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)

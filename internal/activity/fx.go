package activity

import (
	"github.com/srithedesigner/credmatrix-backend/internal/activity/repository"
	"github.com/srithedesigner/credmatrix-backend/internal/activity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("activity.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)

package report

import (
	"github.com/srithedesigner/credmatrix-backend/internal/report/repository"
	"github.com/srithedesigner/credmatrix-backend/internal/report/service"
	"go.uber.org/fx"
)

var Module = fx.Module("report.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)

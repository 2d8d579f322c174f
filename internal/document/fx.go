package document

import (
	"github.com/srithedesigner/credmatrix-backend/internal/document/repository"
	"github.com/srithedesigner/credmatrix-backend/internal/document/service"
	"go.uber.org/fx"
)

var Module = fx.Module("document.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)

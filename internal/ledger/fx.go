package ledger

import (
	"github.com/srithedesigner/credmatrix-backend/internal/ledger/repository"
	"github.com/srithedesigner/credmatrix-backend/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)

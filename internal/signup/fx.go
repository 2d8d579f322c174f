package signup

import (
	"github.com/srithedesigner/credmatrix-backend/internal/config"
	ledgerdomain "github.com/srithedesigner/credmatrix-backend/internal/ledger/domain"
	"github.com/srithedesigner/credmatrix-backend/internal/signup/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("signup.service",
	fx.Provide(newProvisioner),
	fx.Provide(NewService),
)

func newProvisioner(cfg config.Config, ledgerSvc ledgerdomain.Service) domain.Provisioner {
	if cfg.SignupWelcomeCredits <= 0 {
		return NewNoopProvisioner()
	}
	return NewWelcomeCreditsProvisioner(ledgerSvc, cfg.SignupWelcomeCredits)
}

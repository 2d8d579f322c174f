package payment

import (
	"github.com/srithedesigner/credmatrix-backend/internal/payment/adapters"
	"github.com/srithedesigner/credmatrix-backend/internal/payment/adapters/razorpay"
	"github.com/srithedesigner/credmatrix-backend/internal/payment/repository"
	"github.com/srithedesigner/credmatrix-backend/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(func() (*adapters.Registry, error) {
		return adapters.NewRegistry(razorpay.NewFactory(nil))
	}),
	fx.Provide(service.NewService),
)

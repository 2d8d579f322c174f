package migration

import (
	"github.com/srithedesigner/credmatrix-backend/internal/config"
	"github.com/srithedesigner/credmatrix-backend/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if err := Apply(conn); err != nil {
			return err
		}
		if cfg.Bootstrap.AdminEmail == "" {
			return nil
		}
		created, err := seed.EnsureAdmin(conn, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword)
		if err != nil {
			return err
		}
		if created {
			log.Info("bootstrap admin created", zap.String("email", cfg.Bootstrap.AdminEmail))
		}
		return nil
	}),
)

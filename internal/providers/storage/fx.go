package storage

import (
	"context"
	"errors"

	"github.com/srithedesigner/credmatrix-backend/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.storage",
	fx.Provide(NewFromConfig),
)

// NewFromConfig falls back to Unconfigured when no bucket is set, so the
// API still boots and document calls fail as upstream errors.
func NewFromConfig(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (Provider, error) {
	provider, err := NewGCS(context.Background(), GCSConfig{
		Bucket:          cfg.Storage.Bucket,
		CredentialsJSON: cfg.Storage.CredentialsJSON,
		CredentialsFile: cfg.Storage.CredentialsFile,
	})
	if errors.Is(err, ErrNotConfigured) {
		log.Warn("object storage not configured; document uploads are disabled")
		return Unconfigured{}, nil
	}
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return provider.Close()
		},
	})
	return provider, nil
}

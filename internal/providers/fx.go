package providers

import (
	"github.com/srithedesigner/credmatrix-backend/internal/providers/email"
	"github.com/srithedesigner/credmatrix-backend/internal/providers/pdf"
	"github.com/srithedesigner/credmatrix-backend/internal/providers/storage"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	pdf.Module,
	storage.Module,
)

package signup

import (
	"context"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/srithedesigner/credmatrix-backend/internal/ledger/domain"
	"github.com/srithedesigner/credmatrix-backend/internal/signup/domain"
	"gorm.io/gorm"
)

const welcomeReference = "signup_welcome_credits"

type noopProvisioner struct{}

func NewNoopProvisioner() domain.Provisioner {
	return &noopProvisioner{}
}

func (p *noopProvisioner) Provision(ctx context.Context, tx *gorm.DB, entityID, userID snowflake.ID) error {
	return nil
}

// WelcomeCreditsProvisioner tops up a new entity with a fixed grant.
type WelcomeCreditsProvisioner struct {
	ledgerSvc ledgerdomain.Service
	credits   int64
}

func NewWelcomeCreditsProvisioner(ledgerSvc ledgerdomain.Service, credits int64) domain.Provisioner {
	return &WelcomeCreditsProvisioner{
		ledgerSvc: ledgerSvc,
		credits:   credits,
	}
}

func (p *WelcomeCreditsProvisioner) Provision(ctx context.Context, tx *gorm.DB, entityID, userID snowflake.ID) error {
	if err := p.ledgerSvc.Credit(ctx, tx, entityID, p.credits); err != nil {
		return err
	}
	reference := welcomeReference
	return p.ledgerSvc.RecordTransaction(ctx, tx, &ledgerdomain.Transaction{
		EntityID:  entityID,
		UserID:    userID,
		Kind:      ledgerdomain.TransactionKindTopUp,
		Credits:   -p.credits,
		Reference: &reference,
	})
}

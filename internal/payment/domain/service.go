package domain

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/srithedesigner/credmatrix-backend/internal/identity"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByOrderID(ctx context.Context, db *gorm.DB, orderID string) (*Payment, error)
	// MarkCompleted moves a payment that is not yet completed to completed
	// and returns the number of rows changed.
	MarkCompleted(ctx context.Context, db *gorm.DB, id snowflake.ID, providerPaymentID string, now time.Time) (int64, error)
	MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string, now time.Time) error
}

type CreateOrderRequest struct {
	Amount decimal.Decimal
}

type CreateOrderResult struct {
	Payment *Payment
	KeyID   string
}

type VerifyRequest struct {
	OrderID   string
	PaymentID string
	Signature string
}

type Service interface {
	CreateOrder(ctx context.Context, actor identity.Actor, req CreateOrderRequest) (*CreateOrderResult, error)
	Verify(ctx context.Context, actor identity.Actor, req VerifyRequest) (*Payment, error)
	Receipt(ctx context.Context, actor identity.Actor, orderID string) (io.Reader, error)
}

var (
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrInvalidSignature   = errors.New("invalid_signature")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrInvalidStatus      = errors.New("invalid_payment_status")
	ErrNotFound           = errors.New("payment_not_found")
	ErrNotCompleted       = errors.New("payment_not_completed")
	ErrNoEntity           = errors.New("no_entity")
	ErrVerifyInProgress   = errors.New("payment_verification_in_progress")
	ErrGatewayUnavailable = errors.New("payment_gateway_unavailable")
	ErrProviderNotFound   = errors.New("payment_provider_not_found")
	ErrInvalidConfig      = errors.New("invalid_payment_config")
)

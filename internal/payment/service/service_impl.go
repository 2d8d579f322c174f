package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/srithedesigner/credmatrix-backend/internal/audit/domain"
	authdomain "github.com/srithedesigner/credmatrix-backend/internal/auth/domain"
	"github.com/srithedesigner/credmatrix-backend/internal/clock"
	"github.com/srithedesigner/credmatrix-backend/internal/config"
	entitydomain "github.com/srithedesigner/credmatrix-backend/internal/entity/domain"
	"github.com/srithedesigner/credmatrix-backend/internal/identity"
	ledgerdomain "github.com/srithedesigner/credmatrix-backend/internal/ledger/domain"
	obsmetrics "github.com/srithedesigner/credmatrix-backend/internal/observability/metrics"
	"github.com/srithedesigner/credmatrix-backend/internal/payment/adapters"
	paymentdomain "github.com/srithedesigner/credmatrix-backend/internal/payment/domain"
	"github.com/srithedesigner/credmatrix-backend/internal/providers/pdf"
	"github.com/srithedesigner/credmatrix-backend/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const gatewayProvider = "razorpay"

var minorUnitsPerUnit = decimal.NewFromInt(100)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Config     config.Config
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       paymentdomain.Repository
	Registry   *adapters.Registry
	LedgerSvc  ledgerdomain.Service
	EntitySvc  entitydomain.Service
	AuthSvc    authdomain.Service
	PDF        pdf.Provider
	Limiter    *ratelimit.Limiter  `optional:"true"`
	AuditSvc   auditdomain.Service `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       paymentdomain.Repository
	gateway    paymentdomain.Gateway
	ledgerSvc  ledgerdomain.Service
	entitySvc  entitydomain.Service
	authSvc    authdomain.Service
	pdf        pdf.Provider
	limiter    *ratelimit.Limiter
	auditSvc   auditdomain.Service
	obsMetrics *obsmetrics.Metrics

	currency       string
	creditsPerUnit decimal.Decimal
}

func NewService(p Params) paymentdomain.Service {
	log := p.Log.Named("payment.service")

	gateway, err := p.Registry.Open(gatewayProvider, map[string]any{
		"key_id":     p.Config.Razorpay.KeyID,
		"key_secret": p.Config.Razorpay.KeySecret,
		"base_url":   p.Config.Razorpay.BaseURL,
	})
	if err != nil {
		log.Warn("payment gateway not configured, top-ups are disabled",
			zap.Strings("providers", p.Registry.Providers()),
			zap.Error(err),
		)
		gateway = nil
	}

	currency := strings.ToUpper(strings.TrimSpace(p.Config.Razorpay.Currency))
	if currency == "" {
		currency = "INR"
	}
	perUnit := p.Config.CreditsPerCurrencyUnit
	if perUnit <= 0 {
		perUnit = 1
	}

	return &Service{
		db:             p.DB,
		log:            log,
		genID:          p.GenID,
		clock:          p.Clock,
		repo:           p.Repo,
		gateway:        gateway,
		ledgerSvc:      p.LedgerSvc,
		entitySvc:      p.EntitySvc,
		authSvc:        p.AuthSvc,
		pdf:            p.PDF,
		limiter:        p.Limiter,
		auditSvc:       p.AuditSvc,
		obsMetrics:     p.ObsMetrics,
		currency:       currency,
		creditsPerUnit: decimal.NewFromInt(perUnit),
	}
}

func (s *Service) CreateOrder(ctx context.Context, actor identity.Actor, req paymentdomain.CreateOrderRequest) (*paymentdomain.CreateOrderResult, error) {
	if !actor.HasEntity() {
		return nil, paymentdomain.ErrNoEntity
	}
	amountMinor, credits, err := s.quote(req.Amount)
	if err != nil {
		return nil, err
	}
	if s.gateway == nil {
		return nil, paymentdomain.ErrGatewayUnavailable
	}

	id := s.genID.Generate()
	order, err := s.gateway.CreateOrder(ctx, paymentdomain.OrderInput{
		AmountMinor: amountMinor,
		Currency:    s.currency,
		Receipt:     "rcpt_" + id.String(),
		Notes: map[string]string{
			"entity_id": actor.EntityID.String(),
			"user_id":   actor.UserID.String(),
		},
	})
	if err != nil {
		s.log.Error("create gateway order failed", zap.Error(err), zap.String("entity_id", actor.EntityID.String()))
		return nil, fmt.Errorf("%w: %v", paymentdomain.ErrGatewayUnavailable, err)
	}

	now := s.clock.Now()
	payment := &paymentdomain.Payment{
		ID:        id,
		EntityID:  actor.EntityID,
		UserID:    actor.UserID,
		Provider:  s.gateway.Provider(),
		OrderID:   order.ID,
		Amount:    amountMinor,
		Currency:  s.currency,
		Credits:   credits,
		Status:    paymentdomain.StatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, payment); err != nil {
		return nil, err
	}

	s.obsMetrics.RecordPaymentEvent(ctx, payment.Provider, "order_created")
	return &paymentdomain.CreateOrderResult{Payment: payment, KeyID: s.gateway.KeyID()}, nil
}

// quote converts a currency amount into minor units and the credits it buys.
func (s *Service) quote(amount decimal.Decimal) (int64, int64, error) {
	if !amount.IsPositive() {
		return 0, 0, paymentdomain.ErrInvalidAmount
	}
	minor := amount.Mul(minorUnitsPerUnit)
	if !minor.IsInteger() {
		return 0, 0, paymentdomain.ErrInvalidAmount
	}
	credits := amount.Mul(s.creditsPerUnit).Floor().IntPart()
	if credits <= 0 {
		return 0, 0, paymentdomain.ErrInvalidAmount
	}
	return minor.IntPart(), credits, nil
}

func (s *Service) Verify(ctx context.Context, actor identity.Actor, req paymentdomain.VerifyRequest) (*paymentdomain.Payment, error) {
	req.OrderID = strings.TrimSpace(req.OrderID)
	req.PaymentID = strings.TrimSpace(req.PaymentID)
	if req.OrderID == "" || req.PaymentID == "" || strings.TrimSpace(req.Signature) == "" {
		return nil, paymentdomain.ErrInvalidRequest
	}

	payment, err := s.owned(ctx, actor, req.OrderID)
	if err != nil {
		return nil, err
	}
	if payment.Status == paymentdomain.StatusCompleted {
		return payment, nil
	}
	if s.gateway == nil {
		return nil, paymentdomain.ErrGatewayUnavailable
	}

	if err := s.gateway.VerifySignature(req.OrderID, req.PaymentID, req.Signature); err != nil {
		if markErr := s.repo.MarkFailed(ctx, s.db, payment.ID, "signature_mismatch", s.clock.Now()); markErr != nil {
			s.log.Warn("failed to mark payment failed", zap.Error(markErr), zap.String("order_id", req.OrderID))
		}
		s.obsMetrics.RecordPaymentEvent(ctx, payment.Provider, "signature_rejected")
		return nil, paymentdomain.ErrInvalidSignature
	}

	var credited bool
	err = s.limiter.WithOrderLock(ctx, req.OrderID, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			affected, err := s.repo.MarkCompleted(ctx, tx, payment.ID, req.PaymentID, s.clock.Now())
			if err != nil {
				return err
			}
			if affected == 0 {
				return nil
			}
			if err := s.ledgerSvc.Credit(ctx, tx, payment.EntityID, payment.Credits); err != nil {
				return err
			}
			reference := payment.OrderID
			if err := s.ledgerSvc.RecordTransaction(ctx, tx, &ledgerdomain.Transaction{
				EntityID:  payment.EntityID,
				UserID:    payment.UserID,
				Kind:      ledgerdomain.TransactionKindTopUp,
				Credits:   -payment.Credits,
				Reference: &reference,
			}); err != nil {
				return err
			}
			credited = true
			return nil
		})
	})
	if errors.Is(err, ratelimit.ErrLocked) {
		return nil, paymentdomain.ErrVerifyInProgress
	}
	if err != nil {
		return nil, err
	}

	completed, err := s.repo.FindByOrderID(ctx, s.db, req.OrderID)
	if err != nil {
		return nil, err
	}
	if completed == nil {
		return nil, paymentdomain.ErrNotFound
	}

	if credited {
		s.log.Info("payment completed",
			zap.String("order_id", completed.OrderID),
			zap.String("entity_id", completed.EntityID.String()),
			zap.Int64("credits", completed.Credits),
		)
		s.obsMetrics.RecordPaymentEvent(ctx, completed.Provider, "completed")
		s.audit(ctx, actor, completed)
	}
	return completed, nil
}

func (s *Service) Receipt(ctx context.Context, actor identity.Actor, orderID string) (io.Reader, error) {
	payment, err := s.owned(ctx, actor, strings.TrimSpace(orderID))
	if err != nil {
		return nil, err
	}
	if payment.Status != paymentdomain.StatusCompleted {
		return nil, paymentdomain.ErrNotCompleted
	}

	entity, err := s.entitySvc.Get(ctx, payment.EntityID)
	if err != nil {
		return nil, err
	}
	user, err := s.authSvc.GetUser(ctx, payment.UserID)
	if err != nil {
		return nil, err
	}

	data := pdf.ReceiptData{
		ReceiptNumber: "rcpt_" + payment.ID.String(),
		EntityName:    entity.Name,
		BillToName:    user.Name,
		BillToEmail:   user.Email,
		OrderID:       payment.OrderID,
		Provider:      payment.Provider,
		Amount:        FormatAmount(payment.Amount, payment.Currency),
		Credits:       payment.Credits,
	}
	if payment.ProviderPaymentID != nil {
		data.PaymentID = *payment.ProviderPaymentID
	}
	if payment.CompletedAt != nil {
		data.DatePaid = payment.CompletedAt.UTC().Format("January 2, 2006")
	}
	return s.pdf.GenerateReceipt(ctx, data)
}

// FormatAmount renders minor units as "INR 500.00".
func FormatAmount(minor int64, currency string) string {
	return currency + " " + decimal.New(minor, -2).StringFixed(2)
}

// owned loads a payment of the actor. Payments of other users read as
// missing.
func (s *Service) owned(ctx context.Context, actor identity.Actor, orderID string) (*paymentdomain.Payment, error) {
	if orderID == "" {
		return nil, paymentdomain.ErrNotFound
	}
	payment, err := s.repo.FindByOrderID(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if payment == nil || payment.UserID != actor.UserID {
		return nil, paymentdomain.ErrNotFound
	}
	return payment, nil
}

func (s *Service) audit(ctx context.Context, actor identity.Actor, payment *paymentdomain.Payment) {
	if s.auditSvc == nil {
		return
	}
	entityID := payment.EntityID
	actorID := actor.UserID.String()
	targetID := payment.ID.String()
	if err := s.auditSvc.AuditLog(ctx, &entityID, string(auditdomain.ActorTypeUser), &actorID, "payment.completed", "payment", &targetID, map[string]any{
		"order_id":            payment.OrderID,
		"provider_payment_id": payment.ProviderPaymentID,
		"amount":              payment.Amount,
		"currency":            payment.Currency,
		"credits":             payment.Credits,
	}); err != nil {
		s.log.Warn("failed to write payment audit log", zap.Error(err))
	}
}

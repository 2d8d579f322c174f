package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/srithedesigner/credmatrix-backend/internal/audit/domain"
	"github.com/srithedesigner/credmatrix-backend/internal/clock"
	"github.com/srithedesigner/credmatrix-backend/internal/identity"
	ledgerdomain "github.com/srithedesigner/credmatrix-backend/internal/ledger/domain"
	obsmetrics "github.com/srithedesigner/credmatrix-backend/internal/observability/metrics"
	"github.com/srithedesigner/credmatrix-backend/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       ledgerdomain.Repository
	AuditSvc   auditdomain.Service `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       ledgerdomain.Repository
	auditSvc   auditdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		auditSvc:   p.AuditSvc,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Debit(ctx context.Context, tx *gorm.DB, entityID snowflake.ID, amount int64) error {
	if amount <= 0 {
		return ledgerdomain.ErrInvalidAmount
	}
	if entityID == 0 {
		return ledgerdomain.ErrEntityNotFound
	}
	if tx == nil {
		tx = s.db
	}

	affected, err := s.repo.DecrementIfSufficient(ctx, tx, entityID, amount, s.clock.Now())
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	exists, err := s.repo.EntityExists(ctx, tx, entityID)
	if err != nil {
		return err
	}
	if !exists {
		return ledgerdomain.ErrEntityNotFound
	}
	s.obsMetrics.RecordCreditsRejected(ctx)
	return ledgerdomain.ErrInsufficientCredits
}

func (s *Service) Credit(ctx context.Context, tx *gorm.DB, entityID snowflake.ID, amount int64) error {
	if amount <= 0 {
		return ledgerdomain.ErrInvalidAmount
	}
	if tx == nil {
		tx = s.db
	}

	affected, err := s.repo.Increment(ctx, tx, entityID, amount, s.clock.Now())
	if err != nil {
		return err
	}
	if affected == 0 {
		return ledgerdomain.ErrEntityNotFound
	}
	return nil
}

func (s *Service) RecordTransaction(ctx context.Context, tx *gorm.DB, txn *ledgerdomain.Transaction) error {
	if txn == nil || txn.EntityID == 0 || txn.Credits == 0 {
		return ledgerdomain.ErrInvalidAmount
	}
	if txn.Kind < ledgerdomain.TransactionKindDebit || txn.Kind > ledgerdomain.TransactionKindTopUp {
		return ledgerdomain.ErrInvalidTransactionKind
	}
	if tx == nil {
		tx = s.db
	}
	if txn.ID == 0 {
		txn.ID = s.genID.Generate()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = s.clock.Now()
	}
	return s.repo.InsertTransaction(ctx, tx, txn)
}

func (s *Service) HasRefund(ctx context.Context, tx *gorm.DB, reportID snowflake.ID) (bool, error) {
	if tx == nil {
		tx = s.db
	}
	count, err := s.repo.CountByReportAndKind(ctx, tx, reportID, ledgerdomain.TransactionKindRefund)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Service) Balance(ctx context.Context, entityID snowflake.ID) (int64, error) {
	if entityID == 0 {
		return 0, ledgerdomain.ErrEntityNotFound
	}
	balance, err := s.repo.FindBalance(ctx, s.db, entityID)
	if err != nil {
		return 0, err
	}
	if balance == nil {
		return 0, ledgerdomain.ErrEntityNotFound
	}
	return *balance, nil
}

func (s *Service) ListTransactions(ctx context.Context, req ledgerdomain.ListTransactionsRequest) (ledgerdomain.ListTransactionsResponse, error) {
	if req.EntityID == 0 {
		return ledgerdomain.ListTransactionsResponse{}, ledgerdomain.ErrEntityNotFound
	}

	var cursor *ledgerdomain.TransactionCursor
	decoded, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return ledgerdomain.ListTransactionsResponse{}, ledgerdomain.ErrInvalidPageToken
	}
	if decoded != nil {
		createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
		if err != nil {
			return ledgerdomain.ListTransactionsResponse{}, ledgerdomain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return ledgerdomain.ListTransactionsResponse{}, ledgerdomain.ErrInvalidPageToken
		}
		cursor = &ledgerdomain.TransactionCursor{ID: id, CreatedAt: createdAt}
	}

	limit := req.Limit()
	items, err := s.repo.ListTransactions(ctx, s.db, ledgerdomain.ListTransactionsFilter{
		EntityID: req.EntityID,
		Cursor:   cursor,
		Limit:    limit,
	})
	if err != nil {
		return ledgerdomain.ListTransactionsResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, limit, func(item *ledgerdomain.Transaction) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})

	txns := make([]ledgerdomain.Transaction, 0, len(items))
	for _, item := range items {
		txns = append(txns, *item)
	}
	return ledgerdomain.ListTransactionsResponse{PageInfo: pageInfo, Transactions: txns}, nil
}

// Grant tops up an entity outside the payment flow.
func (s *Service) Grant(ctx context.Context, actor identity.Actor, req ledgerdomain.GrantRequest) (*ledgerdomain.Transaction, error) {
	if req.Credits <= 0 {
		return nil, ledgerdomain.ErrInvalidAmount
	}
	if req.EntityID == 0 {
		return nil, ledgerdomain.ErrEntityNotFound
	}

	var txn *ledgerdomain.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.Credit(ctx, tx, req.EntityID, req.Credits); err != nil {
			return err
		}
		txn = &ledgerdomain.Transaction{
			EntityID: req.EntityID,
			UserID:   actor.UserID,
			Kind:     ledgerdomain.TransactionKindTopUp,
			Credits:  -req.Credits,
		}
		if note := strings.TrimSpace(req.Note); note != "" {
			txn.Reference = &note
		}
		return s.RecordTransaction(ctx, tx, txn)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("credits granted",
		zap.String("entity_id", req.EntityID.String()),
		zap.String("actor_id", actor.UserID.String()),
		zap.Int64("credits", req.Credits),
	)

	if s.auditSvc != nil {
		entityID := req.EntityID
		targetID := entityID.String()
		if err := s.auditSvc.AuditLog(ctx, &entityID, "", nil, "ledger.credits_granted", "entity", &targetID, map[string]any{
			"credits":        req.Credits,
			"transaction_id": txn.ID.String(),
			"note":           req.Note,
		}); err != nil {
			s.log.Warn("failed to write ledger audit log", zap.Error(err))
		}
	}
	return txn, nil
}

package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/srithedesigner/credmatrix-backend/internal/activity/domain"
	"github.com/srithedesigner/credmatrix-backend/internal/clock"
	"github.com/srithedesigner/credmatrix-backend/internal/config"
	documentdomain "github.com/srithedesigner/credmatrix-backend/internal/document/domain"
	"github.com/srithedesigner/credmatrix-backend/internal/identity"
	ledgerdomain "github.com/srithedesigner/credmatrix-backend/internal/ledger/domain"
	obsmetrics "github.com/srithedesigner/credmatrix-backend/internal/observability/metrics"
	reportdomain "github.com/srithedesigner/credmatrix-backend/internal/report/domain"
	"github.com/srithedesigner/credmatrix-backend/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        reportdomain.Repository
	LedgerSvc   ledgerdomain.Service
	DocumentSvc documentdomain.Service
	ActivitySvc activitydomain.Service
	Policy      *config.LifecyclePolicyHolder
	ObsMetrics  *obsmetrics.Metrics          `optional:"true"`
	OpsMetrics  *obsmetrics.LifecycleMetrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        reportdomain.Repository
	ledgerSvc   ledgerdomain.Service
	documentSvc documentdomain.Service
	activitySvc activitydomain.Service
	policy      *config.LifecyclePolicyHolder
	obsMetrics  *obsmetrics.Metrics
	opsMetrics  *obsmetrics.LifecycleMetrics
}

func NewService(p Params) reportdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("report.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		ledgerSvc:   p.LedgerSvc,
		documentSvc: p.DocumentSvc,
		activitySvc: p.ActivitySvc,
		policy:      p.Policy,
		obsMetrics:  p.ObsMetrics,
		opsMetrics:  p.OpsMetrics,
	}
}

func (s *Service) Initiate(ctx context.Context, actor identity.Actor, req reportdomain.InitiateRequest) (report *reportdomain.Report, err error) {
	start := time.Now()
	defer func() { s.observe("initiate", start, err) }()

	if !actor.HasEntity() {
		return nil, reportdomain.ErrNoEntity
	}
	name, err := reportdomain.NormalizeTargetName(req.TargetEntityName)
	if err != nil {
		return nil, err
	}
	pan, err := reportdomain.NormalizePAN(req.TargetEntityPAN)
	if err != nil {
		return nil, err
	}
	services := req.Services.Normalize()
	credits, err := ledgerdomain.RequiredCredits(services)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	report = &reportdomain.Report{
		ID:               s.genID.Generate(),
		UserID:           actor.UserID,
		EntityID:         actor.EntityID,
		Status:           reportdomain.StatusRequestRaised,
		Services:         services,
		TargetEntityName: name,
		TargetEntityPAN:  pan,
		Credits:          credits,
		PendingDocuments: []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ledgerSvc.Debit(ctx, tx, actor.EntityID, credits); err != nil {
			if errors.Is(err, ledgerdomain.ErrEntityNotFound) {
				return reportdomain.ErrNoEntity
			}
			return err
		}
		if err := s.repo.Insert(ctx, tx, report); err != nil {
			return err
		}
		if _, err := s.documentSvc.AttachPending(ctx, tx, actor.UserID, report.ID, req.DocumentIDs); err != nil {
			return err
		}
		reportID := report.ID
		return s.ledgerSvc.RecordTransaction(ctx, tx, &ledgerdomain.Transaction{
			EntityID:  actor.EntityID,
			UserID:    actor.UserID,
			ReportID:  &reportID,
			Kind:      ledgerdomain.TransactionKindDebit,
			Credits:   credits,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordReportInitiated(ctx, credits)
	s.log.Info("report initiated",
		zap.String("report_id", report.ID.String()),
		zap.String("entity_id", actor.EntityID.String()),
		zap.Strings("services", services.Strings()),
		zap.Int64("credits", credits),
	)
	return report, nil
}

func (s *Service) Edit(ctx context.Context, actor identity.Actor, reportID snowflake.ID, changes reportdomain.Changes) (report *reportdomain.Report, err error) {
	start := time.Now()
	defer func() { s.observe("edit", start, err) }()

	if len(changes) == 0 {
		return nil, reportdomain.ErrNoChanges
	}
	fields := changes.Fields()
	policy := s.policy.Get()

	var from, to reportdomain.Status
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.lockForMutation(ctx, tx, actor, reportID)
		if err != nil {
			return err
		}

		from = current.Status
		before := reportdomain.TakeSnapshot(current, fields)
		if err := changes.Apply(current); err != nil {
			return err
		}
		to = current.Status
		if policy.EnforceTransitions && from != to && !from.CanTransitionTo(to) {
			return reportdomain.ErrInvalidTransition
		}
		if err := current.CheckCancellation(); err != nil {
			return err
		}
		after := reportdomain.TakeSnapshot(current, fields)

		current.UpdatedAt = s.clock.Now()
		if err := s.repo.UpdateMutable(ctx, tx, current); err != nil {
			return err
		}
		if _, err := s.activitySvc.Record(ctx, tx, activitydomain.RecordRequest{
			ReportID: current.ID,
			UserID:   actor.UserID,
			OldState: before.Map(),
			NewState: after.Map(),
		}); err != nil {
			return err
		}
		report = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	if from != to {
		s.opsMetrics.IncStatusTransition(from.String(), to.String())
	}
	return report, nil
}

// Cancel moves a report to CANCELLED. Without transition enforcement a
// cancelled report can be cancelled again, and each call is journaled.
func (s *Service) Cancel(ctx context.Context, actor identity.Actor, reportID snowflake.ID, reason string) (report *reportdomain.Report, err error) {
	start := time.Now()
	defer func() { s.observe("cancel", start, err) }()

	normalized, err := reportdomain.NormalizeReason(reason)
	if err != nil {
		return nil, err
	}
	if normalized == nil {
		return nil, reportdomain.ErrCancellationReasonRequired
	}
	policy := s.policy.Get()
	fields := []reportdomain.Field{reportdomain.FieldStatus, reportdomain.FieldCancellationReason}

	var (
		from     reportdomain.Status
		refunded bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.lockForMutation(ctx, tx, actor, reportID)
		if err != nil {
			return err
		}

		from = current.Status
		if policy.EnforceTransitions && !from.CanTransitionTo(reportdomain.StatusCancelled) {
			return reportdomain.ErrInvalidTransition
		}

		before := reportdomain.TakeSnapshot(current, fields)
		current.Status = reportdomain.StatusCancelled
		current.CancellationReason = normalized
		current.UpdatedAt = s.clock.Now()
		after := reportdomain.TakeSnapshot(current, fields)

		if err := s.repo.UpdateMutable(ctx, tx, current); err != nil {
			return err
		}
		if _, err := s.activitySvc.Record(ctx, tx, activitydomain.RecordRequest{
			ReportID: current.ID,
			UserID:   actor.UserID,
			OldState: before.Map(),
			NewState: after.Map(),
		}); err != nil {
			return err
		}

		if policy.RefundOnCancel {
			refunded, err = s.refund(ctx, tx, actor, current)
			if err != nil {
				return err
			}
		}
		report = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordReportCancelled(ctx, refunded)
	if from != reportdomain.StatusCancelled {
		s.opsMetrics.IncStatusTransition(from.String(), reportdomain.StatusCancelled.String())
	}
	s.log.Info("report cancelled",
		zap.String("report_id", report.ID.String()),
		zap.String("from_status", from.String()),
		zap.Bool("refunded", refunded),
	)
	return report, nil
}

// refund returns the charged credits at most once per report.
func (s *Service) refund(ctx context.Context, tx *gorm.DB, actor identity.Actor, report *reportdomain.Report) (bool, error) {
	if report.Credits <= 0 {
		return false, nil
	}
	already, err := s.ledgerSvc.HasRefund(ctx, tx, report.ID)
	if err != nil || already {
		return false, err
	}
	if err := s.ledgerSvc.Credit(ctx, tx, report.EntityID, report.Credits); err != nil {
		return false, err
	}
	reportID := report.ID
	if err := s.ledgerSvc.RecordTransaction(ctx, tx, &ledgerdomain.Transaction{
		EntityID: report.EntityID,
		UserID:   actor.UserID,
		ReportID: &reportID,
		Kind:     ledgerdomain.TransactionKindRefund,
		Credits:  -report.Credits,
	}); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) Get(ctx context.Context, actor identity.Actor, reportID snowflake.ID) (*reportdomain.Report, error) {
	report, err := s.repo.FindByID(ctx, s.db, reportID)
	if err != nil {
		return nil, err
	}
	if report == nil || !canView(actor, report) {
		return nil, reportdomain.ErrNotFound
	}
	return report, nil
}

func (s *Service) ListForEntity(ctx context.Context, actor identity.Actor, req reportdomain.ListReportsRequest) (reportdomain.ListReportsResponse, error) {
	if !actor.HasEntity() {
		return reportdomain.ListReportsResponse{}, reportdomain.ErrNoEntity
	}

	var status reportdomain.Status
	if raw := strings.TrimSpace(req.Status); raw != "" {
		parsed, err := reportdomain.ParseStatus(raw)
		if err != nil {
			return reportdomain.ListReportsResponse{}, err
		}
		status = parsed
	}

	cursor, err := decodeCursor(req.PageToken)
	if err != nil {
		return reportdomain.ListReportsResponse{}, err
	}

	limit := req.Limit()
	items, err := s.repo.List(ctx, s.db, reportdomain.ListFilter{
		EntityID: actor.EntityID,
		Status:   status,
		Cursor:   cursor,
		Limit:    limit,
	})
	if err != nil {
		return reportdomain.ListReportsResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, limit, func(item *reportdomain.Report) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})

	reports := make([]reportdomain.Report, 0, len(items))
	for _, item := range items {
		reports = append(reports, *item)
	}
	return reportdomain.ListReportsResponse{PageInfo: pageInfo, Reports: reports}, nil
}

func (s *Service) History(ctx context.Context, actor identity.Actor, reportID snowflake.ID) ([]activitydomain.Activity, error) {
	if _, err := s.Get(ctx, actor, reportID); err != nil {
		return nil, err
	}
	return s.activitySvc.History(ctx, reportID)
}

func (s *Service) lockForMutation(ctx context.Context, tx *gorm.DB, actor identity.Actor, reportID snowflake.ID) (*reportdomain.Report, error) {
	report, err := s.repo.FindByIDForUpdate(ctx, tx, reportID)
	if err != nil {
		return nil, err
	}
	if report == nil || !canMutate(actor, report) {
		return nil, reportdomain.ErrNotFound
	}
	return report, nil
}

func (s *Service) observe(operation string, start time.Time, err error) {
	s.opsMetrics.ObserveOperation(operation, time.Since(start), err, isBusinessError(err))
}

// Reports outside the caller's reach are reported as missing.
func canView(actor identity.Actor, report *reportdomain.Report) bool {
	if canMutate(actor, report) {
		return true
	}
	return actor.HasEntity() && actor.EntityID == report.EntityID
}

func canMutate(actor identity.Actor, report *reportdomain.Report) bool {
	if actor.Role == identity.RoleAdmin || actor.UserID == report.UserID {
		return true
	}
	return report.AgentID != nil && *report.AgentID == actor.UserID
}

func decodeCursor(token string) (*reportdomain.ReportCursor, error) {
	decoded, err := pagination.DecodeCursor(token)
	if err != nil {
		return nil, reportdomain.ErrInvalidPageToken
	}
	if decoded == nil {
		return nil, nil
	}
	createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
	if err != nil {
		return nil, reportdomain.ErrInvalidPageToken
	}
	id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
	if err != nil || id == 0 {
		return nil, reportdomain.ErrInvalidPageToken
	}
	return &reportdomain.ReportCursor{ID: id, CreatedAt: createdAt}, nil
}

func isBusinessError(err error) bool {
	for _, target := range []error{
		reportdomain.ErrNotFound,
		reportdomain.ErrNoEntity,
		reportdomain.ErrInvalidTransition,
		reportdomain.ErrNoChanges,
		reportdomain.ErrFieldNotMutable,
		reportdomain.ErrInvalidFieldValue,
		reportdomain.ErrCancellationReasonRequired,
		reportdomain.ErrCancellationReasonMismatch,
		reportdomain.ErrInvalidTargetName,
		reportdomain.ErrInvalidPAN,
		ledgerdomain.ErrInsufficientCredits,
		ledgerdomain.ErrEmptyServices,
		ledgerdomain.ErrInvalidServiceCode,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

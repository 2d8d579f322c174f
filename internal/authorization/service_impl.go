package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/srithedesigner/credmatrix-backend/internal/audit/domain"
	"github.com/srithedesigner/credmatrix-backend/internal/identity"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectProfile  = "profile"
	ObjectReport   = "report"
	ObjectDocument = "document"
	ObjectCredits  = "credits"
	ObjectPayment  = "payment"
	ObjectEntity   = "entity"
	ObjectAuditLog = "audit_log"
)

const (
	ActionProfileView = "profile.view"

	ActionReportCreate = "report.create"
	ActionReportView   = "report.view"
	ActionReportUpdate = "report.update"
	ActionReportCancel = "report.cancel"

	ActionDocumentUpload   = "document.upload"
	ActionDocumentView     = "document.view"
	ActionDocumentDownload = "document.download"

	ActionCreditsView = "credits.view"

	ActionPaymentCreate = "payment.create"
	ActionPaymentVerify = "payment.verify"
	ActionPaymentView   = "payment.view"

	ActionEntityGrantCredits = "entity.grant_credits"

	ActionAuditLogView = "audit_log.view"
)

const (
	roleUser  = "role:user"
	roleAdmin = "role:admin"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor identity.Actor, object string, action string) error {
	if actor.UserID == 0 {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	// Role comes from the users table, not from the token.
	role, err := s.roleForUser(ctx, actor.UserID)
	if err != nil {
		s.auditDenied(ctx, actor, object, action)
		return err
	}

	subject := actor.Subject()
	roleName := fmt.Sprintf("role:%s", role)
	if err := s.ensureGrouping(subject, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, actor, object, action)
		return ErrForbidden
	}

	if shouldAuditGrant(action) {
		s.auditGranted(ctx, actor, object, action)
	}
	return nil
}

func (s *ServiceImpl) roleForUser(ctx context.Context, userID snowflake.ID) (string, error) {
	var row struct {
		Role string `gorm:"column:role"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT role
		 FROM users
		 WHERE id = ?
		 LIMIT 1`,
		userID,
	).Scan(&row).Error; err != nil {
		return "", err
	}

	role, ok := identity.ParseRole(row.Role)
	if !ok {
		return "", ErrForbidden
	}
	return string(role), nil
}

func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, actor identity.Actor, object string, action string) {
	s.audit(ctx, actor, "authorization.denied", object, action)
}

func (s *ServiceImpl) auditGranted(ctx context.Context, actor identity.Actor, object string, action string) {
	s.audit(ctx, actor, "authorization.granted", object, action)
}

func (s *ServiceImpl) audit(ctx context.Context, actor identity.Actor, auditAction string, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	var entityID *snowflake.ID
	if actor.HasEntity() {
		id := actor.EntityID
		entityID = &id
	}
	actorID := actor.UserID.String()
	targetID := "capability"
	if err := s.auditSvc.AuditLog(ctx, entityID, string(auditdomain.ActorTypeUser), &actorID, auditAction, "authorization", &targetID, map[string]any{
		"object":  object,
		"action":  action,
		"subject": actor.Subject(),
	}); err != nil {
		s.log.Warn("failed to write authorization audit log", zap.Error(err))
	}
}

func shouldAuditGrant(action string) bool {
	switch action {
	case ActionEntityGrantCredits, ActionAuditLogView:
		return true
	default:
		return false
	}
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{roleUser, ObjectProfile, ActionProfileView},

		{roleUser, ObjectReport, ActionReportCreate},
		{roleUser, ObjectReport, ActionReportView},
		{roleUser, ObjectReport, ActionReportUpdate},
		{roleUser, ObjectReport, ActionReportCancel},

		{roleUser, ObjectDocument, ActionDocumentUpload},
		{roleUser, ObjectDocument, ActionDocumentView},
		{roleUser, ObjectDocument, ActionDocumentDownload},

		{roleUser, ObjectCredits, ActionCreditsView},

		{roleUser, ObjectPayment, ActionPaymentCreate},
		{roleUser, ObjectPayment, ActionPaymentVerify},
		{roleUser, ObjectPayment, ActionPaymentView},

		// Admins act on any entity.
		{roleAdmin, ObjectEntity, ActionEntityGrantCredits},
		{roleAdmin, ObjectAuditLog, ActionAuditLogView},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}

	// Admins inherit every user permission.
	if _, err := enforcer.AddGroupingPolicy(roleAdmin, roleUser); err != nil {
		return err
	}
	return nil
}

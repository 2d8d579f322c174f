package signup

import (
	"context"
	"strings"

	auditdomain "github.com/srithedesigner/credmatrix-backend/internal/audit/domain"
	authdomain "github.com/srithedesigner/credmatrix-backend/internal/auth/domain"
	entitydomain "github.com/srithedesigner/credmatrix-backend/internal/entity/domain"
	"github.com/srithedesigner/credmatrix-backend/internal/identity"
	otpdomain "github.com/srithedesigner/credmatrix-backend/internal/otp/domain"
	"github.com/srithedesigner/credmatrix-backend/internal/signup/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	AuthSvc     authdomain.Service
	EntitySvc   entitydomain.Service
	OTPSvc      otpdomain.Service
	Provisioner domain.Provisioner
	AuditSvc    auditdomain.Service `optional:"true"`
}

type service struct {
	db          *gorm.DB
	log         *zap.Logger
	authsvc     authdomain.Service
	entitysvc   entitydomain.Service
	otpsvc      otpdomain.Service
	provisioner domain.Provisioner
	auditsvc    auditdomain.Service
}

func NewService(p Params) domain.Service {
	return &service{
		db:          p.DB,
		log:         p.Log.Named("signup.service"),
		authsvc:     p.AuthSvc,
		entitysvc:   p.EntitySvc,
		otpsvc:      p.OTPSvc,
		provisioner: p.Provisioner,
		auditsvc:    p.AuditSvc,
	}
}

// Signup creates the entity and its first user, who becomes the entity
// admin, and consumes the OTP. Nothing is kept when any step fails.
func (s *service) Signup(ctx context.Context, req domain.Request) (*domain.Result, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.EntityName) == "" || strings.TrimSpace(req.OTP) == "" {
		return nil, domain.ErrInvalidRequest
	}
	email, ok := identity.NormalizeEmail(req.Email)
	if !ok {
		return nil, authdomain.ErrInvalidEmail
	}
	entityType, err := entitydomain.ParseEntityType(req.EntityType)
	if err != nil {
		return nil, err
	}
	if err := s.otpsvc.Verify(ctx, email, req.OTP); err != nil {
		return nil, err
	}

	var (
		entity *entitydomain.Entity
		user   *authdomain.User
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entity, err = s.entitysvc.Create(ctx, tx, entitydomain.CreateEntityRequest{
			Name: req.EntityName,
			Type: entityType,
		})
		if err != nil {
			return err
		}

		entityID := entity.ID
		user, err = s.authsvc.CreateUser(ctx, tx, authdomain.CreateUserRequest{
			Email:    email,
			Name:     req.Name,
			Password: req.Password,
			Role:     identity.RoleUser,
			EntityID: &entityID,
		})
		if err != nil {
			return err
		}

		if err := s.entitysvc.SetAdmin(ctx, tx, entity.ID, user.ID); err != nil {
			return err
		}
		adminID := user.ID
		entity.AdminUserID = &adminID

		if err := s.provisioner.Provision(ctx, tx, entity.ID, user.ID); err != nil {
			return err
		}
		return s.otpsvc.Consume(ctx, tx, email)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("signup completed",
		zap.String("entity_id", entity.ID.String()),
		zap.String("user_id", user.ID.String()),
	)
	s.audit(ctx, entity, user)

	login, err := s.authsvc.IssueSession(ctx, user, authdomain.ClientInfo{
		UserAgent: req.UserAgent,
		IPAddress: req.IPAddress,
	})
	if err != nil {
		return nil, err
	}

	return &domain.Result{Login: login, Entity: entity}, nil
}

func (s *service) audit(ctx context.Context, entity *entitydomain.Entity, user *authdomain.User) {
	if s.auditsvc == nil {
		return
	}
	actorID := user.ID.String()
	targetID := entity.ID.String()
	entityID := entity.ID
	if err := s.auditsvc.AuditLog(ctx, &entityID, string(identity.RoleUser), &actorID, "auth.signup", "entity", &targetID, map[string]any{
		"entity_type": entity.Type.String(),
	}); err != nil {
		s.log.Warn("failed to write audit log", zap.Error(err))
	}
}

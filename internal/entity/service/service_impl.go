package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/srithedesigner/credmatrix-backend/internal/clock"
	entitydomain "github.com/srithedesigner/credmatrix-backend/internal/entity/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  entitydomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  entitydomain.Repository
}

func NewService(p Params) entitydomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("entity.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, tx *gorm.DB, req entitydomain.CreateEntityRequest) (*entitydomain.Entity, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > 255 {
		return nil, entitydomain.ErrInvalidName
	}
	if !req.Type.Valid() {
		return nil, entitydomain.ErrInvalidEntityType
	}
	if tx == nil {
		tx = s.db
	}

	now := s.clock.Now()
	entity := &entitydomain.Entity{
		ID:        s.genID.Generate(),
		Name:      name,
		Type:      req.Type,
		Credits:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, tx, entity); err != nil {
		return nil, err
	}

	s.log.Info("entity created",
		zap.String("entity_id", entity.ID.String()),
		zap.String("entity_type", entity.Type.String()),
	)
	return entity, nil
}

func (s *Service) SetAdmin(ctx context.Context, tx *gorm.DB, entityID, userID snowflake.ID) error {
	if tx == nil {
		tx = s.db
	}
	return s.repo.UpdateAdmin(ctx, tx, entityID, userID)
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*entitydomain.Entity, error) {
	if id == 0 {
		return nil, entitydomain.ErrNotFound
	}
	entity, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, entitydomain.ErrNotFound
	}
	return entity, nil
}

package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/srithedesigner/credmatrix-backend/internal/activity/domain"
	"github.com/srithedesigner/credmatrix-backend/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  activitydomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  activitydomain.Repository
}

func NewService(p Params) activitydomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("activity.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// Record does not inspect the snapshots; callers keep the key sets aligned.
func (s *Service) Record(ctx context.Context, tx *gorm.DB, req activitydomain.RecordRequest) (*activitydomain.Activity, error) {
	if req.ReportID == 0 {
		return nil, activitydomain.ErrInvalidReport
	}
	if tx == nil {
		tx = s.db
	}

	activity := &activitydomain.Activity{
		ID:        s.genID.Generate(),
		ReportID:  req.ReportID,
		UserID:    req.UserID,
		OldState:  toJSONMap(req.OldState),
		NewState:  toJSONMap(req.NewState),
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, tx, activity); err != nil {
		return nil, err
	}

	s.log.Debug("activity recorded",
		zap.String("report_id", req.ReportID.String()),
		zap.String("activity_id", activity.ID.String()),
		zap.Int("fields", len(activity.NewState)),
	)
	return activity, nil
}

func (s *Service) History(ctx context.Context, reportID snowflake.ID) ([]activitydomain.Activity, error) {
	if reportID == 0 {
		return nil, activitydomain.ErrInvalidReport
	}
	return s.repo.ListByReport(ctx, s.db, reportID)
}

func toJSONMap(state map[string]any) datatypes.JSONMap {
	out := make(datatypes.JSONMap, len(state))
	for key, value := range state {
		out[key] = value
	}
	return out
}

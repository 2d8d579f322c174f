package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/srithedesigner/credmatrix-backend/internal/activity/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() activitydomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, activity *activitydomain.Activity) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO activities (id, report_id, user_id, old_state, new_state, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		activity.ID,
		activity.ReportID,
		activity.UserID,
		activity.OldState,
		activity.NewState,
		activity.CreatedAt,
	).Error
}

func (r *repo) ListByReport(ctx context.Context, db *gorm.DB, reportID snowflake.ID) ([]activitydomain.Activity, error) {
	var items []activitydomain.Activity
	err := db.WithContext(ctx).
		Where("report_id = ?", reportID).
		Order("created_at asc, id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

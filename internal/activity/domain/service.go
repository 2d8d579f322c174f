package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type RecordRequest struct {
	ReportID snowflake.ID
	UserID   snowflake.ID
	OldState map[string]any
	NewState map[string]any
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, activity *Activity) error
	ListByReport(ctx context.Context, db *gorm.DB, reportID snowflake.ID) ([]Activity, error)
}

type Service interface {
	// Record appends an entry on the caller's transaction.
	Record(ctx context.Context, tx *gorm.DB, req RecordRequest) (*Activity, error)
	History(ctx context.Context, reportID snowflake.ID) ([]Activity, error)
}

var ErrInvalidReport = errors.New("invalid_report")

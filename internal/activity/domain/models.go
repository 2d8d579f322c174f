package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Activity journals one mutating call on a report.
type Activity struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	ReportID  snowflake.ID      `gorm:"not null;index:ix_activities_report_created,priority:1" json:"report_id"`
	UserID    snowflake.ID      `gorm:"not null;index" json:"user_id"`
	OldState  datatypes.JSONMap `gorm:"not null" json:"old_state"`
	NewState  datatypes.JSONMap `gorm:"not null" json:"new_state"`
	CreatedAt time.Time         `gorm:"not null;index:ix_activities_report_created,priority:2" json:"created_at"`
}

// TableName sets the database table name.
func (Activity) TableName() string { return "activities" }

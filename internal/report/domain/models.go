package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/srithedesigner/credmatrix-backend/internal/ledger/domain"
	"gorm.io/datatypes"
)

// Report is a request for a due-diligence report on a target entity.
// Credits is fixed at initiation.
type Report struct {
	ID                 snowflake.ID                `gorm:"primaryKey" json:"id"`
	UserID             snowflake.ID                `gorm:"not null;index" json:"user_id"`
	EntityID           snowflake.ID                `gorm:"not null;index:ix_reports_entity_created,priority:1" json:"entity_id"`
	AgentID            *snowflake.ID               `gorm:"index" json:"agent_id,omitempty"`
	Status             Status                      `gorm:"type:text;not null;index" json:"status"`
	Services           ledgerdomain.ServiceCodes   `gorm:"type:text;not null" json:"services"`
	TargetEntityName   string                      `gorm:"type:text;not null" json:"target_entity_name"`
	TargetEntityPAN    string                      `gorm:"column:target_entity_pan;type:text;not null" json:"target_entity_pan"`
	Credits            int64                       `gorm:"not null" json:"credits"`
	PendingDocuments   datatypes.JSONSlice[string] `gorm:"not null" json:"pending_documents"`
	CancellationReason *string                     `gorm:"type:text" json:"cancellation_reason"`
	CreatedAt          time.Time                   `gorm:"not null;index:ix_reports_entity_created,priority:2" json:"created_at"`
	UpdatedAt          time.Time                   `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Report) TableName() string { return "reports" }

// CheckCancellation holds when a reason is present exactly for cancelled
// reports.
func (r *Report) CheckCancellation() error {
	hasReason := r.CancellationReason != nil && *r.CancellationReason != ""
	if hasReason != (r.Status == StatusCancelled) {
		return ErrCancellationReasonMismatch
	}
	return nil
}

type ReportCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	EntityID snowflake.ID
	Status   Status
	Cursor   *ReportCursor
	Limit    int
}

package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/srithedesigner/credmatrix-backend/internal/activity/domain"
	"github.com/srithedesigner/credmatrix-backend/internal/identity"
	ledgerdomain "github.com/srithedesigner/credmatrix-backend/internal/ledger/domain"
	"github.com/srithedesigner/credmatrix-backend/pkg/db/pagination"
	"gorm.io/gorm"
)

type InitiateRequest struct {
	TargetEntityName string
	TargetEntityPAN  string
	Services         ledgerdomain.ServiceCodes
	DocumentIDs      []snowflake.ID
}

type ListReportsRequest struct {
	pagination.Pagination
	Status string
}

type ListReportsResponse struct {
	pagination.PageInfo
	Reports []Report `json:"reports"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, report *Report) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Report, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Report, error)
	UpdateMutable(ctx context.Context, db *gorm.DB, report *Report) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Report, error)
}

type Service interface {
	// Initiate debits the actor's entity and creates a REQUEST_RAISED report
	// in one unit of work.
	Initiate(ctx context.Context, actor identity.Actor, req InitiateRequest) (*Report, error)
	// Edit applies a partial update and journals exactly the submitted fields.
	Edit(ctx context.Context, actor identity.Actor, reportID snowflake.ID, changes Changes) (*Report, error)
	Cancel(ctx context.Context, actor identity.Actor, reportID snowflake.ID, reason string) (*Report, error)
	Get(ctx context.Context, actor identity.Actor, reportID snowflake.ID) (*Report, error)
	ListForEntity(ctx context.Context, actor identity.Actor, req ListReportsRequest) (ListReportsResponse, error)
	History(ctx context.Context, actor identity.Actor, reportID snowflake.ID) ([]activitydomain.Activity, error)
}

var (
	ErrNotFound                   = errors.New("report_not_found")
	ErrNoEntity                   = errors.New("no_entity")
	ErrInvalidStatus              = errors.New("invalid_status")
	ErrInvalidTransition          = errors.New("invalid_status_transition")
	ErrNoChanges                  = errors.New("no_changes")
	ErrFieldNotMutable            = errors.New("field_not_mutable")
	ErrInvalidFieldValue          = errors.New("invalid_field_value")
	ErrCancellationReasonRequired = errors.New("cancellation_reason_required")
	ErrCancellationReasonMismatch = errors.New("cancellation_reason_mismatch")
	ErrInvalidCancellationReason  = errors.New("invalid_cancellation_reason")
	ErrInvalidTargetName          = errors.New("invalid_target_entity_name")
	ErrInvalidPAN                 = errors.New("invalid_target_entity_pan")
	ErrInvalidPageToken           = errors.New("invalid_page_token")
)

package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	reportdomain "github.com/srithedesigner/credmatrix-backend/internal/report/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() reportdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, report *reportdomain.Report) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO reports (
			id, user_id, entity_id, agent_id, status, services, target_entity_name,
			target_entity_pan, credits, pending_documents, cancellation_reason,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ID,
		report.UserID,
		report.EntityID,
		report.AgentID,
		report.Status,
		report.Services,
		report.TargetEntityName,
		report.TargetEntityPAN,
		report.Credits,
		report.PendingDocuments,
		report.CancellationReason,
		report.CreatedAt,
		report.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*reportdomain.Report, error) {
	return r.find(db.WithContext(ctx), id)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*reportdomain.Report, error) {
	return r.find(db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *repo) find(db *gorm.DB, id snowflake.ID) (*reportdomain.Report, error) {
	if id == 0 {
		return nil, nil
	}
	var reports []reportdomain.Report
	if err := db.Where("id = ?", id).Limit(1).Find(&reports).Error; err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, nil
	}
	return &reports[0], nil
}

// UpdateMutable writes every mutable column. Services and credits are
// never touched after insert.
func (r *repo) UpdateMutable(ctx context.Context, db *gorm.DB, report *reportdomain.Report) error {
	result := db.WithContext(ctx).Exec(
		`UPDATE reports SET
			status = ?,
			agent_id = ?,
			target_entity_name = ?,
			target_entity_pan = ?,
			pending_documents = ?,
			cancellation_reason = ?,
			updated_at = ?
		WHERE id = ?`,
		report.Status,
		report.AgentID,
		report.TargetEntityName,
		report.TargetEntityPAN,
		report.PendingDocuments,
		report.CancellationReason,
		report.UpdatedAt,
		report.ID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return reportdomain.ErrNotFound
	}
	return nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter reportdomain.ListFilter) ([]*reportdomain.Report, error) {
	var items []*reportdomain.Report
	stmt := db.WithContext(ctx).Model(&reportdomain.Report{}).
		Where("entity_id = ?", filter.EntityID)

	if filter.Status != 0 {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

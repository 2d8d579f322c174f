package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	documentdomain "github.com/srithedesigner/credmatrix-backend/internal/document/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() documentdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, doc *documentdomain.Document) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO documents (id, report_id, user_id, name, storage_key, uploaded_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.ID,
		doc.ReportID,
		doc.UserID,
		doc.Name,
		doc.StorageKey,
		doc.UploadedAt,
		doc.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*documentdomain.Document, error) {
	var doc documentdomain.Document
	err := db.WithContext(ctx).Raw(
		`SELECT id, report_id, user_id, name, storage_key, uploaded_at, created_at
		FROM documents WHERE id = ?`,
		id,
	).Scan(&doc).Error
	if err != nil {
		return nil, err
	}
	if doc.ID == 0 {
		return nil, nil
	}
	return &doc, nil
}

func (r *repo) MarkUploaded(ctx context.Context, db *gorm.DB, id, userID snowflake.ID, at time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE documents SET uploaded_at = ?
		WHERE id = ? AND user_id = ? AND uploaded_at IS NULL`,
		at,
		id,
		userID,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) AttachPending(ctx context.Context, db *gorm.DB, userID, reportID snowflake.ID, ids []snowflake.ID, at time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE documents
		SET report_id = ?, uploaded_at = COALESCE(uploaded_at, ?)
		WHERE report_id IS NULL AND user_id = ? AND id IN ?`,
		reportID,
		at,
		userID,
		ids,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) ListByReport(ctx context.Context, db *gorm.DB, reportID snowflake.ID) ([]documentdomain.Document, error) {
	var docs []documentdomain.Document
	err := db.WithContext(ctx).
		Where("report_id = ?", reportID).
		Order("created_at asc, id asc").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *repo) FindReportOwner(ctx context.Context, db *gorm.DB, reportID snowflake.ID) (*snowflake.ID, error) {
	var owners []int64
	if err := db.WithContext(ctx).Raw(
		`SELECT user_id FROM reports WHERE id = ?`,
		reportID,
	).Scan(&owners).Error; err != nil {
		return nil, err
	}
	if len(owners) == 0 {
		return nil, nil
	}
	owner := snowflake.ID(owners[0])
	return &owner, nil
}

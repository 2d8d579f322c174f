package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/srithedesigner/credmatrix-backend/internal/ledger/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() ledgerdomain.Repository {
	return &repo{}
}

func (r *repo) DecrementIfSufficient(ctx context.Context, db *gorm.DB, entityID snowflake.ID, amount int64, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE entities
		SET credits = credits - ?, updated_at = ?
		WHERE id = ? AND credits >= ?`,
		amount,
		now,
		entityID,
		amount,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) Increment(ctx context.Context, db *gorm.DB, entityID snowflake.ID, amount int64, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE entities SET credits = credits + ?, updated_at = ? WHERE id = ?`,
		amount,
		now,
		entityID,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) EntityExists(ctx context.Context, db *gorm.DB, entityID snowflake.ID) (bool, error) {
	var count int64
	if err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM entities WHERE id = ?`,
		entityID,
	).Scan(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) FindBalance(ctx context.Context, db *gorm.DB, entityID snowflake.ID) (*int64, error) {
	var rows []int64
	if err := db.WithContext(ctx).Raw(
		`SELECT credits FROM entities WHERE id = ?`,
		entityID,
	).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repo) InsertTransaction(ctx context.Context, db *gorm.DB, txn *ledgerdomain.Transaction) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO transactions (id, entity_id, user_id, report_id, kind, credits, reference, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID,
		txn.EntityID,
		txn.UserID,
		txn.ReportID,
		txn.Kind,
		txn.Credits,
		txn.Reference,
		txn.CreatedAt,
	).Error
}

func (r *repo) CountByReportAndKind(ctx context.Context, db *gorm.DB, reportID snowflake.ID, kind ledgerdomain.TransactionKind) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM transactions WHERE report_id = ? AND kind = ?`,
		reportID,
		kind,
	).Scan(&count).Error
	return count, err
}

func (r *repo) ListTransactions(ctx context.Context, db *gorm.DB, filter ledgerdomain.ListTransactionsFilter) ([]*ledgerdomain.Transaction, error) {
	var items []*ledgerdomain.Transaction
	stmt := db.WithContext(ctx).Model(&ledgerdomain.Transaction{}).
		Where("entity_id = ?", filter.EntityID)

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

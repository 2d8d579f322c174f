package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/srithedesigner/credmatrix-backend/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Create(payment).Error
}

func (r *repo) FindByOrderID(ctx context.Context, db *gorm.DB, orderID string) (*domain.Payment, error) {
	var items []domain.Payment
	err := db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Limit(1).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func (r *repo) MarkCompleted(ctx context.Context, db *gorm.DB, id snowflake.ID, providerPaymentID string, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET status = ?, provider_payment_id = ?, failure_reason = NULL, completed_at = ?, updated_at = ?
		 WHERE id = ? AND status <> ?`,
		domain.StatusCompleted.String(),
		providerPaymentID,
		now,
		now,
		id,
		domain.StatusCompleted.String(),
	)
	return res.RowsAffected, res.Error
}

func (r *repo) MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET status = ?, failure_reason = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusFailed.String(),
		reason,
		now,
		id,
		domain.StatusCreated.String(),
	).Error
}

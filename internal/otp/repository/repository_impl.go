package repository

import (
	"context"

	otpdomain "github.com/srithedesigner/credmatrix-backend/internal/otp/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() otpdomain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, otp *otpdomain.OTP) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"code", "created_at"}),
		}).
		Create(otp).Error
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*otpdomain.OTP, error) {
	var items []otpdomain.OTP
	if err := db.WithContext(ctx).
		Where("email = ?", email).
		Limit(1).
		Find(&items).Error; err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func (r *repo) DeleteByEmail(ctx context.Context, db *gorm.DB, email string) error {
	return db.WithContext(ctx).Exec(`DELETE FROM otps WHERE email = ?`, email).Error
}

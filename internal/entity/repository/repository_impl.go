package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	entitydomain "github.com/srithedesigner/credmatrix-backend/internal/entity/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() entitydomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entity *entitydomain.Entity) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO entities (id, name, entity_type, credits, admin_user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entity.ID,
		entity.Name,
		entity.Type,
		entity.Credits,
		entity.AdminUserID,
		entity.CreatedAt,
		entity.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*entitydomain.Entity, error) {
	var entity entitydomain.Entity
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, entity_type, credits, admin_user_id, created_at, updated_at
		FROM entities WHERE id = ?`,
		id,
	).Scan(&entity).Error
	if err != nil {
		return nil, err
	}
	if entity.ID == 0 {
		return nil, nil
	}
	return &entity, nil
}

func (r *repo) UpdateAdmin(ctx context.Context, db *gorm.DB, id, adminUserID snowflake.ID) error {
	result := db.WithContext(ctx).Exec(
		`UPDATE entities SET admin_user_id = ?, updated_at = ? WHERE id = ?`,
		adminUserID,
		time.Now().UTC(),
		id,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return entitydomain.ErrNotFound
	}
	return nil
}

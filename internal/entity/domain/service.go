package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type CreateEntityRequest struct {
	Name string
	Type EntityType
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entity *Entity) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Entity, error)
	UpdateAdmin(ctx context.Context, db *gorm.DB, id, adminUserID snowflake.ID) error
}

type Service interface {
	// Create runs on the caller's transaction handle.
	Create(ctx context.Context, tx *gorm.DB, req CreateEntityRequest) (*Entity, error)
	SetAdmin(ctx context.Context, tx *gorm.DB, entityID, userID snowflake.ID) error
	Get(ctx context.Context, id snowflake.ID) (*Entity, error)
}

var (
	ErrNotFound          = errors.New("entity_not_found")
	ErrInvalidName       = errors.New("invalid_entity_name")
	ErrInvalidEntityType = errors.New("invalid_entity_type")
)

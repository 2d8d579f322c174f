package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/srithedesigner/credmatrix-backend/internal/auth/domain"
	"gorm.io/gorm"
)

type repo struct{}

func New() (domain.Repository, domain.SessionRepository) {
	r := &repo{}
	return r, r
}

func (r *repo) CreateUser(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Create(user).Error
}

func (r *repo) FindUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	return r.findUser(ctx, db, "email = ?", email)
}

func (r *repo) FindUserByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	return r.findUser(ctx, db, "id = ?", id)
}

func (r *repo) findUser(ctx context.Context, db *gorm.DB, query string, arg any) (*domain.User, error) {
	var users []domain.User
	if err := db.WithContext(ctx).Where(query, arg).Limit(1).Find(&users).Error; err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, domain.ErrUserNotFound
	}
	return &users[0], nil
}

func (r *repo) TouchLastLogin(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE users SET last_login_at = ?, updated_at = ? WHERE id = ?`,
		at, at, id,
	).Error
}

func (r *repo) CreateSession(ctx context.Context, db *gorm.DB, session *domain.Session) error {
	return db.WithContext(ctx).Create(session).Error
}

func (r *repo) FindSessionByTokenHash(ctx context.Context, db *gorm.DB, tokenHash string) (*domain.Session, error) {
	var sessions []domain.Session
	if err := db.WithContext(ctx).
		Where("refresh_token_hash = ?", tokenHash).
		Limit(1).
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, domain.ErrInvalidSession
	}
	return &sessions[0], nil
}

func (r *repo) RevokeSession(ctx context.Context, db *gorm.DB, sessionID snowflake.ID, revokedAt time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE sessions SET revoked_at = ?, last_seen_at = ? WHERE id = ? AND revoked_at IS NULL`,
		revokedAt, revokedAt, sessionID,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) RevokeFamily(ctx context.Context, db *gorm.DB, familyID string, revokedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE sessions SET revoked_at = ? WHERE family_id = ? AND revoked_at IS NULL`,
		revokedAt, familyID,
	).Error
}

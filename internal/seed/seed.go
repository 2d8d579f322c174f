package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/srithedesigner/credmatrix-backend/internal/auth/domain"
	"github.com/srithedesigner/credmatrix-backend/internal/auth/password"
	"github.com/srithedesigner/credmatrix-backend/internal/identity"
	"gorm.io/gorm"
)

const (
	adminDisplayName = "CredMatrix Admin"
	// Seed ids come from a node no API process uses.
	seedNodeID = 1023
)

var (
	ErrInvalidEmail    = errors.New("invalid_bootstrap_admin_email")
	ErrInvalidPassword = errors.New("invalid_bootstrap_admin_password")
)

// EnsureAdmin creates a staff admin account without an entity when no user
// holds the email yet. An existing account is left untouched. The password
// is optional; without one the admin signs in by OTP.
func EnsureAdmin(db *gorm.DB, email, rawPassword string) (bool, error) {
	if db == nil {
		return false, errors.New("seed database handle is required")
	}
	normalized, ok := identity.NormalizeEmail(email)
	if !ok {
		return false, ErrInvalidEmail
	}
	if rawPassword != "" && !password.Acceptable(rawPassword) {
		return false, ErrInvalidPassword
	}

	node, err := snowflake.NewNode(seedNodeID)
	if err != nil {
		return false, err
	}

	created := false
	ctx := context.Background()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&authdomain.User{}).Where("email = ?", normalized).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := time.Now().UTC()
		user := authdomain.User{
			ID:        node.Generate(),
			Email:     normalized,
			Name:      adminDisplayName,
			Role:      identity.RoleAdmin,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if rawPassword != "" {
			hashed, err := password.Hash(rawPassword)
			if err != nil {
				return err
			}
			user.PasswordHash = &hashed
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

// Package domain contains core types for the auth service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/srithedesigner/credmatrix-backend/internal/identity"
)

// User represents a system user account.
type User struct {
	ID           snowflake.ID  `gorm:"primaryKey" json:"id"`
	Email        string        `gorm:"type:text;not null;uniqueIndex" json:"email"`
	Name         string        `gorm:"type:text;not null" json:"name"`
	PasswordHash *string       `gorm:"type:text" json:"-"`
	Role         identity.Role `gorm:"type:text;not null;default:'user'" json:"role"`
	EntityID     *snowflake.ID `gorm:"column:entity_id;index" json:"entity_id,omitempty"`
	LastLoginAt  *time.Time    `gorm:"column:last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// Actor is the identity carried by the user's access tokens.
func (u *User) Actor() identity.Actor {
	actor := identity.Actor{UserID: u.ID, Role: u.Role}
	if u.EntityID != nil {
		actor.EntityID = *u.EntityID
	}
	return actor
}

// Session is one refresh token. Rotation revokes the session and opens a
// new one in the same family.
type Session struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	UserID           snowflake.ID `gorm:"column:user_id;not null;index"`
	FamilyID         string       `gorm:"column:family_id;type:text;not null;index"`
	RefreshTokenHash string       `gorm:"column:refresh_token_hash;type:text;not null;uniqueIndex"`
	UserAgent        string       `gorm:"column:user_agent;type:text"`
	IPAddress        string       `gorm:"column:ip_address;type:text"`
	ExpiresAt        time.Time    `gorm:"column:expires_at;not null;index"`
	RevokedAt        *time.Time   `gorm:"column:revoked_at"`
	CreatedAt        time.Time    `gorm:"column:created_at;not null"`
	LastSeenAt       time.Time    `gorm:"column:last_seen_at;not null"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "sessions" }

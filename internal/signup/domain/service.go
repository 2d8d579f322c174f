package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/srithedesigner/credmatrix-backend/internal/auth/domain"
	entitydomain "github.com/srithedesigner/credmatrix-backend/internal/entity/domain"
	"gorm.io/gorm"
)

type Service interface {
	Signup(ctx context.Context, req Request) (*Result, error)
}

type Request struct {
	Email      string `json:"email"`
	OTP        string `json:"otp"`
	Name       string `json:"name"`
	EntityName string `json:"entity_name"`
	EntityType string `json:"entity_type"`
	Password   string `json:"password"`
	UserAgent  string `json:"-"`
	IPAddress  string `json:"-"`
}

type Result struct {
	Login  *authdomain.LoginResult
	Entity *entitydomain.Entity
}

// Provisioner prepares a freshly created entity inside the signup
// transaction.
type Provisioner interface {
	Provision(ctx context.Context, tx *gorm.DB, entityID, userID snowflake.ID) error
}

var ErrInvalidRequest = errors.New("invalid_signup_request")

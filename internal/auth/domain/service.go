package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/srithedesigner/credmatrix-backend/internal/identity"
	"gorm.io/gorm"
)

type Service interface {
	// CreateUser runs on the caller's transaction handle.
	CreateUser(ctx context.Context, tx *gorm.DB, req CreateUserRequest) (*User, error)
	LoginWithOTP(ctx context.Context, req OTPLoginRequest) (*LoginResult, error)
	LoginWithPassword(ctx context.Context, req PasswordLoginRequest) (*LoginResult, error)
	// IssueSession opens a session for an already verified user.
	IssueSession(ctx context.Context, user *User, client ClientInfo) (*LoginResult, error)
	Refresh(ctx context.Context, rawRefreshToken string, client ClientInfo) (*LoginResult, error)
	Logout(ctx context.Context, rawRefreshToken string) error
	Authenticate(ctx context.Context, accessToken string) (identity.Actor, error)
	GetUser(ctx context.Context, id snowflake.ID) (*User, error)
}

type CreateUserRequest struct {
	Email    string
	Name     string
	Password string
	Role     identity.Role
	EntityID *snowflake.ID
}

type ClientInfo struct {
	UserAgent string
	IPAddress string
}

type OTPLoginRequest struct {
	ClientInfo
	Email string
	OTP   string
}

type PasswordLoginRequest struct {
	ClientInfo
	Email    string
	Password string
}

type LoginResult struct {
	User                  *User
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}

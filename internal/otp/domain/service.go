package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, otp *OTP) error
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*OTP, error)
	DeleteByEmail(ctx context.Context, db *gorm.DB, email string) error
}

type Service interface {
	// Send replaces any outstanding code for email and delivers a new one.
	Send(ctx context.Context, email string) error
	Verify(ctx context.Context, email, code string) error
	// Consume deletes the code. tx may be nil.
	Consume(ctx context.Context, tx *gorm.DB, email string) error
}

var (
	ErrInvalidEmail   = errors.New("invalid_email")
	ErrInvalidOTP     = errors.New("invalid_otp")
	ErrOTPExpired     = errors.New("otp_expired")
	ErrRateLimited    = errors.New("otp_rate_limited")
	ErrDeliveryFailed = errors.New("otp_delivery_failed")
)

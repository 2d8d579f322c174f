package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/srithedesigner/credmatrix-backend/internal/clock"
	"github.com/srithedesigner/credmatrix-backend/internal/identity"
	otpdomain "github.com/srithedesigner/credmatrix-backend/internal/otp/domain"
	"github.com/srithedesigner/credmatrix-backend/internal/providers/email"
	"github.com/srithedesigner/credmatrix-backend/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	otpSubject  = "Your OTP for Signup"
	otpTemplate = "otp"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    otpdomain.Repository
	Email   email.Provider
	Limiter *ratelimit.Limiter `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    otpdomain.Repository
	email   email.Provider
	limiter *ratelimit.Limiter
}

func NewService(p Params) otpdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("otp.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		email:   p.Email,
		limiter: p.Limiter,
	}
}

func (s *Service) Send(ctx context.Context, rawEmail string) error {
	addr, ok := identity.NormalizeEmail(rawEmail)
	if !ok {
		return otpdomain.ErrInvalidEmail
	}

	res, err := s.limiter.AllowOTP(ctx, addr)
	if err != nil {
		// A broken limiter must not block signups.
		s.log.Warn("otp rate limit check failed", zap.Error(err))
	} else if !res.Allowed {
		return otpdomain.ErrRateLimited
	}

	code, err := generateCode()
	if err != nil {
		return err
	}
	if err := s.repo.Upsert(ctx, s.db, &otpdomain.OTP{
		ID:        s.genID.Generate(),
		Email:     addr,
		Code:      code,
		CreatedAt: s.clock.Now(),
	}); err != nil {
		return err
	}

	if err := s.email.SendTemplate(ctx, []string{addr}, otpTemplate, map[string]any{
		"subject":       otpSubject,
		"otp":           code,
		"valid_minutes": int(otpdomain.Validity.Minutes()),
	}); err != nil {
		s.log.Error("failed to deliver otp", zap.Error(err))
		return fmt.Errorf("%w: %v", otpdomain.ErrDeliveryFailed, err)
	}

	s.log.Info("otp sent")
	return nil
}

func (s *Service) Verify(ctx context.Context, rawEmail, code string) error {
	addr, ok := identity.NormalizeEmail(rawEmail)
	if !ok {
		return otpdomain.ErrInvalidEmail
	}
	code = strings.TrimSpace(code)
	if len(code) != otpdomain.CodeLength {
		return otpdomain.ErrInvalidOTP
	}

	stored, err := s.repo.FindByEmail(ctx, s.db, addr)
	if err != nil {
		return err
	}
	if stored == nil || subtle.ConstantTimeCompare([]byte(stored.Code), []byte(code)) != 1 {
		return otpdomain.ErrInvalidOTP
	}
	if stored.Expired(s.clock.Now()) {
		return otpdomain.ErrOTPExpired
	}
	return nil
}

func (s *Service) Consume(ctx context.Context, tx *gorm.DB, rawEmail string) error {
	addr, ok := identity.NormalizeEmail(rawEmail)
	if !ok {
		return otpdomain.ErrInvalidEmail
	}
	if tx == nil {
		tx = s.db
	}
	return s.repo.DeleteByEmail(ctx, tx, addr)
}

// generateCode returns a six digit code without a leading zero.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}

package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/srithedesigner/credmatrix-backend/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	keyOTPSend      = "otp:send:%s"
	keyPaymentOrder = "payment:verify:lock:%s"

	paymentLockTTL = 30 * time.Second
)

// ErrLocked is returned when another caller holds the lock.
var ErrLocked = errors.New("resource_locked")

// Limiter guards OTP sends and payment verification. A nil or disabled
// limiter allows everything.
type Limiter struct {
	enabled bool
	client  *redis.Client
	bucket  *TokenBucket
	orders  *orderLock

	otpRate  float64
	otpBurst int
}

func NewLimiter(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*Limiter, error) {
	redisCfg := cfg.Redis
	if !redisCfg.Enabled {
		log.Info("redis disabled, otp rate limiting and payment locks are off")
		return &Limiter{}, nil
	}

	addr := strings.TrimSpace(redisCfg.Addr)
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	if redisCfg.OTPRatePerMinute <= 0 || redisCfg.OTPBurst <= 0 {
		return nil, errors.New("otp rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(redisCfg.Password),
		DB:       redisCfg.DB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return newLimiter(client, float64(redisCfg.OTPRatePerMinute)/60, int(redisCfg.OTPBurst)), nil
}

func newLimiter(client *redis.Client, otpRate float64, otpBurst int) *Limiter {
	return &Limiter{
		enabled:  true,
		client:   client,
		bucket:   NewTokenBucket(client),
		orders:   newOrderLock(client, paymentLockTTL),
		otpRate:  otpRate,
		otpBurst: otpBurst,
	}
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.enabled
}

// AllowOTP spends one send for the email address.
func (l *Limiter) AllowOTP(ctx context.Context, email string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyOTPSend, strings.ToLower(strings.TrimSpace(email)))
	return l.bucket.Allow(ctx, key, l.otpRate, l.otpBurst)
}

// WithOrderLock runs fn while holding the verification lock for orderID.
func (l *Limiter) WithOrderLock(ctx context.Context, orderID string, fn func() error) error {
	if !l.Enabled() {
		return fn()
	}
	release, err := l.orders.acquire(ctx, orderID)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// Package token issues and verifies HS256 access tokens.
package token

import (
	"crypto/rand"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/srithedesigner/credmatrix-backend/internal/auth/domain"
	"github.com/srithedesigner/credmatrix-backend/internal/clock"
	"github.com/srithedesigner/credmatrix-backend/internal/config"
	"github.com/srithedesigner/credmatrix-backend/internal/identity"
	"go.uber.org/zap"
)

const issuerName = "credmatrix"

type Claims struct {
	jwt.RegisteredClaims
	EntityID string `json:"entity_id,omitempty"`
	Role     string `json:"role"`
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

func NewIssuer(cfg config.Config, clk clock.Clock, log *zap.Logger) (*Issuer, error) {
	secret := []byte(cfg.AuthJWTSecret)
	if len(secret) == 0 {
		if cfg.IsProduction() {
			return nil, errors.New("AUTH_JWT_SECRET is required in production")
		}
		// Tokens do not survive a restart.
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, err
		}
		log.Warn("AUTH_JWT_SECRET not set, using an ephemeral signing key")
	}
	ttl := time.Duration(cfg.AccessTokenTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return New(secret, ttl, clk), nil
}

func New(secret []byte, ttl time.Duration, clk clock.Clock) *Issuer {
	return &Issuer{secret: secret, ttl: ttl, clock: clk}
}

// Issue signs an access token for actor.
func (i *Issuer) Issue(actor identity.Actor) (string, time.Time, error) {
	now := i.clock.Now()
	expiresAt := now.Add(i.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuerName,
			Subject:   actor.UserID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role: string(actor.Role),
	}
	if actor.HasEntity() {
		claims.EntityID = actor.EntityID.String()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Parse verifies raw and returns the actor it was issued for.
func (i *Issuer) Parse(raw string) (identity.Actor, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return identity.Actor{}, domain.ErrInvalidToken
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuerName),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return identity.Actor{}, domain.ErrTokenExpired
		}
		return identity.Actor{}, domain.ErrInvalidToken
	}

	userID, err := snowflake.ParseString(claims.Subject)
	if err != nil || userID == 0 {
		return identity.Actor{}, domain.ErrInvalidToken
	}
	role, ok := identity.ParseRole(claims.Role)
	if !ok {
		return identity.Actor{}, domain.ErrInvalidToken
	}
	actor := identity.Actor{UserID: userID, Role: role}
	if claims.EntityID != "" {
		entityID, err := snowflake.ParseString(claims.EntityID)
		if err != nil {
			return identity.Actor{}, domain.ErrInvalidToken
		}
		actor.EntityID = entityID
	}
	return actor, nil
}

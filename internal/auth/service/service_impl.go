package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	auditdomain "github.com/srithedesigner/credmatrix-backend/internal/audit/domain"
	"github.com/srithedesigner/credmatrix-backend/internal/auth/domain"
	"github.com/srithedesigner/credmatrix-backend/internal/auth/password"
	"github.com/srithedesigner/credmatrix-backend/internal/auth/token"
	"github.com/srithedesigner/credmatrix-backend/internal/clock"
	"github.com/srithedesigner/credmatrix-backend/internal/config"
	"github.com/srithedesigner/credmatrix-backend/internal/identity"
	otpdomain "github.com/srithedesigner/credmatrix-backend/internal/otp/domain"
	"github.com/srithedesigner/credmatrix-backend/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	refreshTokenBytes = 32
	defaultRefreshTTL = 7 * 24 * time.Hour
	maxNameLength     = 255
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Config      config.Config
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	SessionRepo domain.SessionRepository
	Tokens      *token.Issuer
	OTPSvc      otpdomain.Service
	AuditSvc    auditdomain.Service `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	sessionRepo domain.SessionRepository
	tokens      *token.Issuer
	otpSvc      otpdomain.Service
	auditSvc    auditdomain.Service
	refreshTTL  time.Duration
}

func New(p Params) domain.Service {
	refreshTTL := time.Duration(p.Config.RefreshTokenTTLSeconds) * time.Second
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTTL
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("auth.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		sessionRepo: p.SessionRepo,
		tokens:      p.Tokens,
		otpSvc:      p.OTPSvc,
		auditSvc:    p.AuditSvc,
		refreshTTL:  refreshTTL,
	}
}

func (s *Service) CreateUser(ctx context.Context, tx *gorm.DB, req domain.CreateUserRequest) (*domain.User, error) {
	if tx == nil {
		tx = s.db
	}
	email, ok := identity.NormalizeEmail(req.Email)
	if !ok {
		return nil, domain.ErrInvalidEmail
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > maxNameLength {
		return nil, domain.ErrInvalidName
	}
	role := req.Role
	if role == "" {
		role = identity.RoleUser
	}
	if _, ok := identity.ParseRole(string(role)); !ok {
		return nil, domain.ErrInvalidCredentials
	}

	var hashed *string
	if req.Password != "" {
		if !password.Acceptable(req.Password) {
			return nil, domain.ErrWeakPassword
		}
		encoded, err := password.Hash(req.Password)
		if err != nil {
			return nil, err
		}
		hashed = &encoded
	}

	if _, err := s.repo.FindUserByEmail(ctx, tx, email); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	now := s.clock.Now()
	user := &domain.User{
		ID:           s.genID.Generate(),
		Email:        email,
		Name:         name,
		PasswordHash: hashed,
		Role:         role,
		EntityID:     req.EntityID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateUser(ctx, tx, user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrUserExists
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) LoginWithOTP(ctx context.Context, req domain.OTPLoginRequest) (*domain.LoginResult, error) {
	email, ok := identity.NormalizeEmail(req.Email)
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}
	if err := s.otpSvc.Verify(ctx, email, req.OTP); err != nil {
		return nil, err
	}

	user, err := s.repo.FindUserByEmail(ctx, s.db, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.otpSvc.Consume(ctx, nil, email); err != nil {
		return nil, err
	}
	return s.login(ctx, user, req.ClientInfo, "otp")
}

func (s *Service) LoginWithPassword(ctx context.Context, req domain.PasswordLoginRequest) (*domain.LoginResult, error) {
	email, ok := identity.NormalizeEmail(req.Email)
	if !ok || req.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindUserByEmail(ctx, s.db, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if user.PasswordHash == nil || !password.Verify(req.Password, *user.PasswordHash) {
		s.log.Info("password login rejected", zap.String("user_id", user.ID.String()))
		return nil, domain.ErrInvalidCredentials
	}
	return s.login(ctx, user, req.ClientInfo, "password")
}

func (s *Service) login(ctx context.Context, user *domain.User, client domain.ClientInfo, method string) (*domain.LoginResult, error) {
	result, err := s.IssueSession(ctx, user, client)
	if err != nil {
		return nil, err
	}
	if err := s.repo.TouchLastLogin(ctx, s.db, user.ID, s.clock.Now()); err != nil {
		s.log.Warn("failed to record last login", zap.Error(err))
	}
	s.audit(ctx, user, "auth.login", map[string]any{"method": method})
	return result, nil
}

func (s *Service) IssueSession(ctx context.Context, user *domain.User, client domain.ClientInfo) (*domain.LoginResult, error) {
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return s.openSession(ctx, s.db, user, uuid.NewString(), client)
}

func (s *Service) openSession(ctx context.Context, tx *gorm.DB, user *domain.User, familyID string, client domain.ClientInfo) (*domain.LoginResult, error) {
	rawRefresh, err := newRefreshToken()
	if err != nil {
		return nil, err
	}
	accessToken, accessExpiresAt, err := s.tokens.Issue(user.Actor())
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	session := &domain.Session{
		ID:               s.genID.Generate(),
		UserID:           user.ID,
		FamilyID:         familyID,
		RefreshTokenHash: hashToken(rawRefresh),
		UserAgent:        strings.TrimSpace(client.UserAgent),
		IPAddress:        strings.TrimSpace(client.IPAddress),
		ExpiresAt:        now.Add(s.refreshTTL),
		CreatedAt:        now,
		LastSeenAt:       now,
	}
	if err := s.sessionRepo.CreateSession(ctx, tx, session); err != nil {
		return nil, err
	}

	return &domain.LoginResult{
		User:                  user,
		AccessToken:           accessToken,
		AccessTokenExpiresAt:  accessExpiresAt,
		RefreshToken:          rawRefresh,
		RefreshTokenExpiresAt: session.ExpiresAt,
	}, nil
}

// Refresh rotates a refresh token. Presenting a token that was already
// rotated or revoked revokes its whole family.
func (s *Service) Refresh(ctx context.Context, rawRefreshToken string, client domain.ClientInfo) (*domain.LoginResult, error) {
	rawRefreshToken = strings.TrimSpace(rawRefreshToken)
	if rawRefreshToken == "" {
		return nil, domain.ErrInvalidSession
	}

	var result *domain.LoginResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := s.sessionRepo.FindSessionByTokenHash(ctx, tx, hashToken(rawRefreshToken))
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if session.RevokedAt != nil {
			s.log.Warn("revoked refresh token reused", zap.String("user_id", session.UserID.String()))
			return domain.ErrSessionRevoked
		}
		if !now.Before(session.ExpiresAt) {
			return domain.ErrSessionExpired
		}

		revoked, err := s.sessionRepo.RevokeSession(ctx, tx, session.ID, now)
		if err != nil {
			return err
		}
		if !revoked {
			return domain.ErrSessionRevoked
		}

		user, err := s.repo.FindUserByID(ctx, tx, session.UserID)
		if err != nil {
			return err
		}
		result, err = s.openSession(ctx, tx, user, session.FamilyID, client)
		return err
	})
	if err != nil {
		// Revoked outside the rolled back transaction.
		if errors.Is(err, domain.ErrSessionRevoked) {
			s.revokeReusedFamily(ctx, rawRefreshToken)
		}
		return nil, err
	}
	return result, nil
}

func (s *Service) revokeReusedFamily(ctx context.Context, rawRefreshToken string) {
	session, err := s.sessionRepo.FindSessionByTokenHash(ctx, s.db, hashToken(rawRefreshToken))
	if err != nil {
		return
	}
	if err := s.sessionRepo.RevokeFamily(ctx, s.db, session.FamilyID, s.clock.Now()); err != nil {
		s.log.Error("failed to revoke session family", zap.Error(err))
	}
}

func (s *Service) Logout(ctx context.Context, rawRefreshToken string) error {
	rawRefreshToken = strings.TrimSpace(rawRefreshToken)
	if rawRefreshToken == "" {
		return domain.ErrInvalidSession
	}

	session, err := s.sessionRepo.FindSessionByTokenHash(ctx, s.db, hashToken(rawRefreshToken))
	if err != nil {
		return err
	}
	if _, err := s.sessionRepo.RevokeSession(ctx, s.db, session.ID, s.clock.Now()); err != nil {
		return err
	}

	if user, err := s.repo.FindUserByID(ctx, s.db, session.UserID); err == nil {
		s.audit(ctx, user, "auth.logout", nil)
	}
	return nil
}

// Authenticate verifies the access token and resolves the caller from the
// users table. Role and entity changes take effect before the token expires.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (identity.Actor, error) {
	claims, err := s.tokens.Parse(accessToken)
	if err != nil {
		return identity.Actor{}, err
	}
	user, err := s.repo.FindUserByID(ctx, s.db, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return identity.Actor{}, domain.ErrInvalidToken
		}
		return identity.Actor{}, err
	}
	return user.Actor(), nil
}

func (s *Service) GetUser(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	return s.repo.FindUserByID(ctx, s.db, id)
}

func (s *Service) audit(ctx context.Context, user *domain.User, action string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	actorID := user.ID.String()
	targetID := user.ID.String()
	if err := s.auditSvc.AuditLog(ctx, user.EntityID, string(user.Role), &actorID, action, "user", &targetID, metadata); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}

func newRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

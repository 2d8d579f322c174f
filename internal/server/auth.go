package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	authdomain "github.com/srithedesigner/credmatrix-backend/internal/auth/domain"
	entitydomain "github.com/srithedesigner/credmatrix-backend/internal/entity/domain"
)

type sendOTPRequest struct {
	Email string `json:"email" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	OTP      string `json:"otp"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type sessionResponse struct {
	TokenType             string           `json:"token_type"`
	AccessToken           string           `json:"access_token"`
	AccessTokenExpiresAt  time.Time        `json:"access_token_expires_at"`
	RefreshToken          string           `json:"refresh_token"`
	RefreshTokenExpiresAt time.Time        `json:"refresh_token_expires_at"`
	User                  *authdomain.User `json:"user"`
}

type meResponse struct {
	User    *authdomain.User     `json:"user"`
	Entity  *entitydomain.Entity `json:"entity,omitempty"`
	Credits *int64               `json:"credits,omitempty"`
}

func (s *Server) SendOTP(c *gin.Context) {
	var req sendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	if err := s.otpSvc.Send(c.Request.Context(), req.Email); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
}

func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	client := clientInfo(c)
	var (
		result *authdomain.LoginResult
		err    error
	)
	switch {
	case req.Password != "":
		result, err = s.authSvc.LoginWithPassword(c.Request.Context(), authdomain.PasswordLoginRequest{
			ClientInfo: client,
			Email:      req.Email,
			Password:   req.Password,
		})
	case strings.TrimSpace(req.OTP) != "":
		result, err = s.authSvc.LoginWithOTP(c.Request.Context(), authdomain.OTPLoginRequest{
			ClientInfo: client,
			Email:      req.Email,
			OTP:        req.OTP,
		})
	default:
		AbortWithError(c, newValidationError("otp", "invalid_otp", "otp or password is required"))
		return
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, s.startSession(c, result))
}

func (s *Server) Refresh(c *gin.Context) {
	var req refreshRequest
	_ = c.ShouldBindJSON(&req)

	token, ok := s.sessions.ReadToken(c, req.RefreshToken)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	result, err := s.authSvc.Refresh(c.Request.Context(), token, clientInfo(c))
	if err != nil {
		s.sessions.Clear(c)
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, s.startSession(c, result))
}

func (s *Server) Logout(c *gin.Context) {
	var req refreshRequest
	_ = c.ShouldBindJSON(&req)

	token, ok := s.sessions.ReadToken(c, req.RefreshToken)
	s.sessions.Clear(c)
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}

	if err := s.authSvc.Logout(c.Request.Context(), token); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) Me(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	user, err := s.authSvc.GetUser(c.Request.Context(), actor.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := meResponse{User: user}
	if actor.HasEntity() {
		entity, err := s.entitySvc.Get(c.Request.Context(), actor.EntityID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		balance, err := s.ledgerSvc.Balance(c.Request.Context(), actor.EntityID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		entity.Credits = balance
		resp.Entity = entity
		resp.Credits = &balance
	}

	c.JSON(http.StatusOK, resp)
}

// startSession sets the refresh cookie and renders the login payload.
func (s *Server) startSession(c *gin.Context, result *authdomain.LoginResult) sessionResponse {
	s.sessions.Set(c, result.RefreshToken, result.RefreshTokenExpiresAt)
	return sessionResponse{
		TokenType:             "Bearer",
		AccessToken:           result.AccessToken,
		AccessTokenExpiresAt:  result.AccessTokenExpiresAt,
		RefreshToken:          result.RefreshToken,
		RefreshTokenExpiresAt: result.RefreshTokenExpiresAt,
		User:                  result.User,
	}
}

func clientInfo(c *gin.Context) authdomain.ClientInfo {
	return authdomain.ClientInfo{
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	}
}

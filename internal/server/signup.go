package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	entitydomain "github.com/srithedesigner/credmatrix-backend/internal/entity/domain"
	signupdomain "github.com/srithedesigner/credmatrix-backend/internal/signup/domain"
)

type SignupRequest struct {
	Email      string `json:"email" binding:"required"`
	OTP        string `json:"otp" binding:"required"`
	Name       string `json:"name" binding:"required"`
	EntityName string `json:"entity_name" binding:"required"`
	EntityType string `json:"entity_type" binding:"required"`
	Password   string `json:"password"`
}

type signupResponse struct {
	sessionResponse
	Entity *entitydomain.Entity `json:"entity"`
}

func (s *Server) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	result, err := s.signupSvc.Signup(c.Request.Context(), signupdomain.Request{
		Email:      req.Email,
		OTP:        req.OTP,
		Name:       req.Name,
		EntityName: req.EntityName,
		EntityType: req.EntityType,
		Password:   req.Password,
		UserAgent:  c.Request.UserAgent(),
		IPAddress:  c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, signupResponse{
		sessionResponse: s.startSession(c, result.Login),
		Entity:          result.Entity,
	})
}

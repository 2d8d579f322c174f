package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	documentdomain "github.com/srithedesigner/credmatrix-backend/internal/document/domain"
)

type uploadURLRequest struct {
	Name        string `json:"name" binding:"required"`
	ContentType string `json:"content_type"`
	ReportID    string `json:"report_id"`
}

func (s *Server) RequestUpload(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var req uploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	var reportID *snowflake.ID
	if raw := strings.TrimSpace(req.ReportID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id <= 0 {
			AbortWithError(c, newValidationError("report_id", "invalid_report_id", "invalid report id"))
			return
		}
		reportID = &id
	}

	ticket, err := s.documentSvc.RequestUpload(c.Request.Context(), actor, documentdomain.RequestUploadRequest{
		Name:        req.Name,
		ContentType: strings.TrimSpace(req.ContentType),
		ReportID:    reportID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": ticket})
}

func (s *Server) ConfirmUpload(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", documentdomain.ErrNotFound)
	if !ok {
		return
	}

	doc, err := s.documentSvc.ConfirmUpload(c.Request.Context(), actor, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": doc})
}

func (s *Server) DownloadURL(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", documentdomain.ErrNotFound)
	if !ok {
		return
	}

	ticket, err := s.documentSvc.DownloadURL(c.Request.Context(), actor, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": ticket})
}

package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/srithedesigner/credmatrix-backend/internal/ledger/domain"
	reportdomain "github.com/srithedesigner/credmatrix-backend/internal/report/domain"
	"github.com/srithedesigner/credmatrix-backend/pkg/db/pagination"
)

type initiateReportRequest struct {
	TargetEntityName string   `json:"target_entity_name" binding:"required"`
	TargetEntityPAN  string   `json:"target_entity_pan" binding:"required"`
	Services         []string `json:"services" binding:"required"`
	DocumentIDs      []string `json:"document_ids"`
}

type cancelReportRequest struct {
	CancellationReason string `json:"cancellation_reason"`
}

type listReportsQuery struct {
	pagination.Pagination
	Status string `form:"status"`
}

func (s *Server) InitiateReport(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var req initiateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	services, err := ledgerdomain.ParseServiceCodes(req.Services)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	documentIDs, err := parseSnowflakeIDs(req.DocumentIDs)
	if err != nil {
		AbortWithError(c, newValidationError("document_ids", "invalid_document_ids", "invalid document id"))
		return
	}

	rep, err := s.reportSvc.Initiate(c.Request.Context(), actor, reportdomain.InitiateRequest{
		TargetEntityName: req.TargetEntityName,
		TargetEntityPAN:  req.TargetEntityPAN,
		Services:         services,
		DocumentIDs:      documentIDs,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": rep})
}

func (s *Server) ListReports(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var query listReportsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.reportSvc.ListForEntity(c.Request.Context(), actor, reportdomain.ListReportsRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		Status: strings.TrimSpace(query.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Reports, "page_info": resp.PageInfo})
}

func (s *Server) GetReport(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", reportdomain.ErrNotFound)
	if !ok {
		return
	}

	rep, err := s.reportSvc.Get(c.Request.Context(), actor, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rep})
}

func (s *Server) EditReport(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", reportdomain.ErrNotFound)
	if !ok {
		return
	}

	var raw map[string]json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	changes, err := reportdomain.DecodeChanges(raw)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	rep, err := s.reportSvc.Edit(c.Request.Context(), actor, id, changes)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rep})
}

func (s *Server) CancelReport(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", reportdomain.ErrNotFound)
	if !ok {
		return
	}

	var req cancelReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	rep, err := s.reportSvc.Cancel(c.Request.Context(), actor, id, req.CancellationReason)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rep})
}

func (s *Server) ListReportActivities(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", reportdomain.ErrNotFound)
	if !ok {
		return
	}

	activities, err := s.reportSvc.History(c.Request.Context(), actor, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": activities})
}

func (s *Server) ListReportDocuments(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", reportdomain.ErrNotFound)
	if !ok {
		return
	}

	// Ownership goes through the report lookup.
	if _, err := s.reportSvc.Get(c.Request.Context(), actor, id); err != nil {
		AbortWithError(c, err)
		return
	}

	docs, err := s.documentSvc.ListByReport(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": docs})
}

// pathID parses a snowflake path parameter. Malformed ids read as notFound.
func pathID(c *gin.Context, name string, notFound error) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param(name)))
	if err != nil || id <= 0 {
		AbortWithError(c, notFound)
		return 0, false
	}
	return id, true
}

func parseSnowflakeIDs(raw []string) ([]snowflake.ID, error) {
	out := make([]snowflake.ID, 0, len(raw))
	for _, item := range raw {
		id, err := snowflake.ParseString(strings.TrimSpace(item))
		if err != nil || id <= 0 {
			return nil, ErrInvalidRequest
		}
		out = append(out, id)
	}
	return out, nil
}

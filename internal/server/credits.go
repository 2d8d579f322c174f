package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/srithedesigner/credmatrix-backend/internal/ledger/domain"
	"github.com/srithedesigner/credmatrix-backend/pkg/db/pagination"
)

type grantCreditsRequest struct {
	Credits int64  `json:"credits" binding:"required,gt=0"`
	Note    string `json:"note"`
}

func (s *Server) GetCredits(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	if !actor.HasEntity() {
		AbortWithError(c, ErrNoEntity)
		return
	}

	var query pagination.Pagination
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	balance, err := s.ledgerSvc.Balance(c.Request.Context(), actor.EntityID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.ledgerSvc.ListTransactions(c.Request.Context(), ledgerdomain.ListTransactionsRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		EntityID: actor.EntityID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"balance":      balance,
			"transactions": resp.Transactions,
		},
		"page_info": resp.PageInfo,
	})
}

func (s *Server) GrantCredits(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	entityID, ok := pathID(c, "id", ledgerdomain.ErrEntityNotFound)
	if !ok {
		return
	}

	var req grantCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	txn, err := s.ledgerSvc.Grant(c.Request.Context(), actor, ledgerdomain.GrantRequest{
		EntityID: entityID,
		Credits:  req.Credits,
		Note:     strings.TrimSpace(req.Note),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	balance, err := s.ledgerSvc.Balance(c.Request.Context(), entityID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": gin.H{"transaction": txn, "balance": balance}})
}

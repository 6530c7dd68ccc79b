package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/slotwise/internal/clock"
)

func (s *Server) ListBillingRows(c *gin.Context) {
	month, err := parseMonth(c.Query("month"), s.currentMonth())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	rows, err := s.overview.ListBillingRows(c.Request.Context(), month)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"month": clock.MonthKey(month), "rows": rows})
}

func (s *Server) MarkCyclePaid(c *gin.Context) {
	account := strings.TrimSpace(c.Param("account"))
	month, err := parseMonth(c.Param("month"), s.currentMonth())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	cycle, err := s.cycles.MarkPaid(c.Request.Context(), account, month)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, cycle)
}

type setPaidStateRequest struct {
	Paid *bool `json:"paid"`
}

func (s *Server) SetCyclePaidState(c *gin.Context) {
	providerID, err := parseSnowflakeParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	month, err := parseMonth(c.Param("month"), s.currentMonth())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req setPaidStateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Paid == nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	cycle, err := s.cycles.SetPaidState(c.Request.Context(), providerID, month, *req.Paid)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, cycle)
}

type creditRequest struct {
	Amount int64  `json:"amount"`
	Note   string `json:"note"`
}

func (s *Server) ApplyCredit(c *gin.Context) {
	var req creditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.ledger.ApplyForAccount(c.Request.Context(), strings.TrimSpace(c.Param("account")), req.Amount)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) GrantCredit(c *gin.Context) {
	providerID, err := parseSnowflakeParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req creditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	entry, err := s.ledger.Grant(c.Request.Context(), providerID, req.Amount, req.Note)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, entry)
}

func (s *Server) GetCredits(c *gin.Context) {
	providerID, err := parseSnowflakeParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	balance, err := s.ledger.Balance(ctx, providerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	entries, err := s.ledger.Entries(ctx, providerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"balance": balance, "entries": entries})
}

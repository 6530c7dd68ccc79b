package server

import (
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	accountdomain "github.com/smallbiznis/slotwise/internal/account/domain"
)

type providerResponse struct {
	ID            snowflake.ID `json:"id"`
	UserID        snowflake.ID `json:"user_id"`
	AccountNumber string       `json:"account_number"`
	IsLocked      bool         `json:"is_locked"`
	LockedAt      *time.Time   `json:"locked_at,omitempty"`
}

type userResponse struct {
	ID          snowflake.ID `json:"id"`
	Email       string       `json:"email"`
	FullName    string       `json:"full_name"`
	Role        string       `json:"role"`
	IsSuspended bool         `json:"is_suspended"`
}

func toProviderResponse(p *accountdomain.Provider) providerResponse {
	return providerResponse{
		ID:            p.ID,
		UserID:        p.UserID,
		AccountNumber: p.AccountNumber,
		IsLocked:      p.IsLocked,
		LockedAt:      p.LockedAt,
	}
}

func toUserResponse(u *accountdomain.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		Role:        string(u.Role),
		IsSuspended: u.IsSuspended,
	}
}

type lockRequest struct {
	Locked *bool `json:"locked"`
}

func (s *Server) SetLockState(c *gin.Context) {
	providerID, err := parseSnowflakeParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req lockRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Locked == nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	provider, err := s.accounts.SetLockState(c.Request.Context(), providerID, *req.Locked)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toProviderResponse(provider))
}

type suspensionRequest struct {
	Suspended *bool `json:"suspended"`
}

func (s *Server) SetSuspension(c *gin.Context) {
	userID, err := parseSnowflakeParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req suspensionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Suspended == nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	user, err := s.accounts.SetSuspension(c.Request.Context(), userID, *req.Suspended)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

// ReactivateProvider clears both the lock and the suspension. Billing
// cycles are left as they are.
func (s *Server) ReactivateProvider(c *gin.Context) {
	providerID, err := parseSnowflakeParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	profile, err := s.accounts.Reactivate(c.Request.Context(), providerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"provider": toProviderResponse(&profile.Provider),
		"user":     toUserResponse(&profile.User),
	})
}

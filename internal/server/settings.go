package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type serviceChargeRequest struct {
	Percentage *float64 `json:"percentage"`
}

func (s *Server) GetServiceCharge(c *gin.Context) {
	policy, err := s.settings.Policy(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"percentage": policy.Percentage})
}

// UpdateServiceCharge only affects live computations; frozen bills keep
// the percentage they were generated with.
func (s *Server) UpdateServiceCharge(c *gin.Context) {
	var req serviceChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Percentage == nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	policy, err := s.settings.Update(c.Request.Context(), *req.Percentage)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"percentage": policy.Percentage})
}

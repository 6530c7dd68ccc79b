package server

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
)

const HeaderAdminID = "X-Admin-Id"

// AdminRequired checks the bearer token when one is configured and requires
// the acting admin to identify themselves for the audit trail in logs.
func (s *Server) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.adminToken != "" {
			token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
			if subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
				AbortWithError(c, ErrUnauthorized)
				return
			}
		}
		if strings.TrimSpace(c.GetHeader(HeaderAdminID)) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

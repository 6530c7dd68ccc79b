package server

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/slotwise/internal/clock"
)

func parseSnowflakeParam(c *gin.Context, name string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(c.Param(name)))
	if err != nil || parsed == 0 {
		return 0, newValidationError(name, "invalid_id", "invalid id")
	}
	return parsed, nil
}

// parseMonth accepts YYYY-MM and falls back to def when value is empty.
func parseMonth(value string, def time.Time) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return def, nil
	}
	month, err := clock.ParseMonthKey(trimmed)
	if err != nil {
		return time.Time{}, newValidationError("month", "invalid_month", "month must be YYYY-MM")
	}
	return month, nil
}

func (s *Server) currentMonth() time.Time {
	return clock.CycleMonth(s.clock.Now(), s.clock.Location())
}

package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obscontext "github.com/smallbiznis/slotwise/internal/observability/context"
	"go.uber.org/zap"
)

const HeaderRequestID = "X-Request-Id"

// ErrorClassifier maps a handler error to the error_type/error_code pair
// attached to the request log line.
type ErrorClassifier func(err error) (kind string, code string)

// RequestLogging seeds the request context with a request id and, when
// actorHeader is present, an admin actor. One line is logged per request.
func RequestLogging(base *zap.Logger, actorHeader string, classify ErrorClassifier) gin.HandlerFunc {
	if base == nil {
		base = zap.L()
	}
	base = base.Named("http")

	return func(c *gin.Context) {
		began := time.Now()

		requestID := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(HeaderRequestID, requestID)

		ctx := obscontext.WithRequestID(c.Request.Context(), requestID)
		if actorHeader != "" {
			if admin := strings.TrimSpace(c.GetHeader(actorHeader)); admin != "" {
				ctx = obscontext.WithActor(ctx, "admin", admin)
			}
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("elapsed", time.Since(began)),
		}
		if last := c.Errors.Last(); last != nil && classify != nil {
			kind, code := classify(last.Err)
			fields = append(fields, zap.String("error_type", kind), zap.String("error_code", code))
		}

		log := WithContext(c.Request.Context(), base)
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("http.request", fields...)
		case strings.HasPrefix(route, "/admin"):
			// admin writes are audit-relevant
			log.Info("http.request", fields...)
		default:
			log.Debug("http.request", fields...)
		}
	}
}

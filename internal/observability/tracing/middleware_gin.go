package tracing

import (
	"net/http"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/slotwise/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// GinMiddleware opens a server span per request. Probe routes are not
// traced. It must run after the request logging middleware so the request
// id and admin actor are already on the context.
func GinMiddleware(skip ...string) gin.HandlerFunc {
	tracer := otel.Tracer("slotwise/http")
	skipped := make(map[string]struct{}, len(skip))
	for _, path := range skip {
		skipped[path] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skipped[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, c.Request.Method+" "+c.Request.URL.Path, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		attrs := []attribute.KeyValue{attribute.String("http.method", c.Request.Method)}
		if id := obscontext.RequestIDFromContext(ctx); id != "" {
			attrs = append(attrs, attribute.String("slotwise.request_id", id))
		}
		if kind, id := obscontext.ActorFromContext(ctx); kind != "" {
			attrs = append(attrs, attribute.String("slotwise.actor_type", kind), attribute.String("slotwise.actor_id", id))
		}
		span.SetAttributes(attrs...)

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		// Name by route template so ids don't explode span cardinality.
		if route := c.FullPath(); route != "" {
			span.SetName(c.Request.Method + " " + route)
			span.SetAttributes(attribute.String("http.route", route))
		}
		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if last := c.Errors.Last(); last != nil {
			span.RecordError(last.Err)
		}
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

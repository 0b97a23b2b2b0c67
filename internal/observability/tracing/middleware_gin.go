package tracing

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/quotedesk/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	AttrResource      = attribute.Key("quotedesk.resource")
	AttrQuoteID       = attribute.Key("quotedesk.quote_id")
	AttrDraftID       = attribute.Key("quotedesk.draft_id")
	AttrEditorSession = attribute.Key("quotedesk.editor_session")
)

// GinMiddleware opens one server span per request and tags it with the quote,
// draft or editor session the route addresses.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer("quotedesk/http")
	return func(c *gin.Context) {
		method := strings.ToUpper(c.Request.Method)
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, "HTTP "+method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
			span.SetAttributes(attribute.String("request_id", requestID))
		}

		c.Request = c.Request.WithContext(ctx)
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		span.SetName("HTTP " + method + " " + route)
		attrs := append([]attribute.KeyValue{
			attribute.String("http.method", method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
			attribute.Int64("http.server_duration_ms", time.Since(start).Milliseconds()),
		}, RouteAttributes(route, c.Params)...)
		span.SetAttributes(SafeAttributes(attrs...)...)

		if status >= http.StatusInternalServerError {
			if lastErr := c.Errors.Last(); lastErr != nil {
				span.RecordError(SafeError(lastErr.Err))
			}
			span.SetStatus(codes.Error, "request error")
		}
	}
}

// RouteAttributes names the resource behind an /api route and, when the route
// carries one, the id it targets.
func RouteAttributes(route string, params gin.Params) []attribute.KeyValue {
	rest, ok := strings.CutPrefix(route, "/api/")
	if !ok {
		return nil
	}
	resource, _, _ := strings.Cut(rest, "/")
	if resource == "" {
		return nil
	}

	attrs := []attribute.KeyValue{AttrResource.String(resource)}
	switch resource {
	case "quotes":
		if id, ok := params.Get("id"); ok {
			attrs = append(attrs, AttrQuoteID.String(id))
		}
	case "drafts":
		if id, ok := params.Get("id"); ok {
			attrs = append(attrs, AttrDraftID.String(id))
		}
	case "editor":
		if sid, ok := params.Get("sid"); ok {
			attrs = append(attrs, AttrEditorSession.String(sid))
		}
	}
	return attrs
}

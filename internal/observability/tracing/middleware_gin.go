package tracing

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/srithedesigner/credmatrix-backend/internal/identity"
	obscontext "github.com/srithedesigner/credmatrix-backend/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "credmatrix/http"

var untracedRoutes = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// GinMiddleware opens a server span per request, continuing any remote
// parent. The span is named after the matched route once routing is done and
// carries the caller's user, entity and role.
func GinMiddleware() gin.HandlerFunc {
	return ginMiddleware(otel.GetTracerProvider())
}

func ginMiddleware(provider trace.TracerProvider) gin.HandlerFunc {
	tracer := provider.Tracer(tracerName)
	return func(c *gin.Context) {
		if _, skip := untracedRoutes[c.FullPath()]; skip {
			c.Next()
			return
		}

		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, c.Request.Method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
			if member, err := baggage.NewMember("request_id", requestID); err == nil {
				if bag, err := baggage.New(member); err == nil {
					ctx = baggage.ContextWithBaggage(ctx, bag)
				}
			}
			span.SetAttributes(attribute.String("request_id", requestID))
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		span.SetName(c.Request.Method + " " + route)
		span.SetAttributes(SafeAttributes(
			attribute.String("http.request.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.Int("http.response.status_code", status),
		)...)
		span.SetAttributes(actorAttributes(c)...)

		if status < http.StatusInternalServerError {
			return
		}
		if last := c.Errors.Last(); last != nil {
			if safeErr := SafeError(last.Err); safeErr != nil {
				span.RecordError(safeErr)
			}
		}
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}

func actorAttributes(c *gin.Context) []attribute.KeyValue {
	actor, ok := identity.ActorFromContext(c.Request.Context())
	if !ok {
		return nil
	}
	attrs := []attribute.KeyValue{
		attribute.String("credmatrix.user_id", actor.UserID.String()),
		attribute.String("credmatrix.role", string(actor.Role)),
	}
	if actor.HasEntity() {
		attrs = append(attrs, attribute.String("credmatrix.entity_id", actor.EntityID.String()))
	}
	return attrs
}

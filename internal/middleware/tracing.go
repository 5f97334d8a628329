package middleware

import (
	"fmt"

	"socially/internal/observability"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware adds OpenTelemetry tracing to requests.
func TracingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		headers := make(propagation.HeaderCarrier)
		for k, values := range c.GetReqHeaders() {
			for _, v := range values {
				headers.Set(k, v)
			}
		}
		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), headers)

		ctx, span := observability.Tracer.Start(ctx, fmt.Sprintf("%s %s", c.Method(), c.Path()),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Method()),
				attribute.String("http.path", c.Path()),
				attribute.String("http.ip", c.IP()),
			),
		)
		defer span.End()

		traceID := span.SpanContext().TraceID().String()
		c.Locals("traceID", traceID)
		if requestID, ok := c.Locals("requestid").(string); ok {
			span.SetAttributes(attribute.String("request.id", requestID))
		}
		c.Set("X-Trace-ID", traceID)
		c.SetUserContext(ctx)

		err := c.Next()

		span.SetAttributes(attribute.Int("http.status_code", c.Response().StatusCode()))
		if err != nil {
			span.RecordError(err)
		}
		if userID, ok := c.Locals("userID").(string); ok {
			span.SetAttributes(attribute.String("user.id", userID))
		}

		return err
	}
}

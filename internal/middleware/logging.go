package middleware

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Logger is the process-wide structured logger. Records logged with a
// context carry the request, user and trace ids stored in it.
var Logger = slog.New(newHandler(os.Stdout, os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL")))

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	UserIDKey    contextKey = "user_id"
	TraceIDKey   contextKey = "trace_id"
)

var correlationKeys = []contextKey{RequestIDKey, UserIDKey, TraceIDKey}

// newHandler logs JSON in production and text elsewhere.
func newHandler(w io.Writer, env, level string) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if env == "production" || env == "prod" {
		return &ctxHandler{slog.NewJSONHandler(w, opts)}
	}
	return &ctxHandler{slog.NewTextHandler(w, opts)}
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// ctxHandler copies correlation ids from the context onto each record.
type ctxHandler struct {
	slog.Handler
}

func (h *ctxHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, key := range correlationKeys {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			r.AddAttrs(slog.String(string(key), v))
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ctxHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ctxHandler{h.Handler.WithAttrs(attrs)}
}

func (h *ctxHandler) WithGroup(name string) slog.Handler {
	return &ctxHandler{h.Handler.WithGroup(name)}
}

// WithUserID returns ctx tagged with the acting user.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// ContextMiddleware moves the request id and trace id from Fiber locals into
// the request context. Must run after requestid and TracingMiddleware.
func ContextMiddleware() fiber.Handler {
	locals := map[contextKey]string{RequestIDKey: "requestid", TraceIDKey: "traceID"}
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		for key, local := range locals {
			if v, ok := c.Locals(local).(string); ok {
				ctx = context.WithValue(ctx, key, v)
			}
		}
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// StructuredLogger logs one line per request once the handler chain returns.
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		attrs := []slog.Attr{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("ip", c.IP()),
		}
		level := slog.LevelInfo
		switch {
		case err != nil:
			level = slog.LevelError
			attrs = append(attrs, slog.String("error", err.Error()))
		case status >= fiber.StatusInternalServerError:
			level = slog.LevelError
		case status >= fiber.StatusBadRequest:
			level = slog.LevelWarn
		}
		Logger.LogAttrs(c.UserContext(), level, "http request", attrs...)
		return err
	}
}

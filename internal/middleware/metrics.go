package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
)

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// InitMetrics exposes Prometheus metrics at /metrics on app and records
// per-request HTTP metrics. The collectors are registered once per process.
func InitMetrics(app *fiber.App) {
	promOnce.Do(func() {
		prom = fiberprometheus.New("socially-api")
	})
	prom.RegisterAt(app, "/metrics")
	app.Use(MetricsMiddleware())
}

// MetricsMiddleware returns the request metrics handler registered by InitMetrics.
func MetricsMiddleware() fiber.Handler {
	promOnce.Do(func() {
		prom = fiberprometheus.New("socially-api")
	})
	return prom.Middleware
}

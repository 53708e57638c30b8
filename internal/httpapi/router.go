// Package httpapi assembles the gin router for the operator-facing
// HTTP surface (spec.md §6), grounded on the teacher's cmd/api/main.go
// route-group layout (versioned route group, pprof mounted alongside
// it in local/dev builds).
package httpapi

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xiebiao/saga-coordinator/internal/httpapi/handler"
	"github.com/xiebiao/saga-coordinator/internal/httpapi/middleware"
	"github.com/xiebiao/saga-coordinator/internal/obsmetrics"
)

// NewRouter builds the gin engine: middleware, the coordinator route
// group spec.md §6 specifies paths under, and the Prometheus scrape
// endpoint. The debug pprof server (spec.md §8 supplemented feature)
// runs on its own port, started separately in cmd/coordinator, the
// same way the teacher's cmd/api/main.go keeps it off the main
// request path.
func NewRouter(h *handler.Handler, m *obsmetrics.Metrics, log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(log))
	r.Use(middleware.Metrics(m))

	// /metrics stays unversioned at root, outside spec.md §6's table:
	// it's a scrape endpoint for Prometheus, not an operator API call.
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	coordinator := r.Group("/api/coordinator")
	{
		coordinator.GET("/health", h.Health)
		coordinator.POST("/orders", h.CreateOrder)
		coordinator.GET("/sagas", h.ListSagas)
		coordinator.GET("/sagas/:id", h.GetSaga)
		coordinator.DELETE("/sagas/:id", h.AbortSaga)
		coordinator.GET("/statistics", h.Statistics)
	}

	return r
}

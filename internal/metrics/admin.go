package metrics

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AdminServer is the agent's small local HTTP surface: a liveness probe
// and a Prometheus scrape endpoint. It carries no dispatcher traffic —
// the Link is the only channel for that.
type AdminServer struct {
	httpServer *http.Server
}

// NewAdminServer builds (but does not start) the admin surface bound to
// addr, routed through gin the way the rest of the pack wires its HTTP
// surfaces.
func NewAdminServer(addr string) *AdminServer {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &AdminServer{httpServer: &http.Server{Addr: addr, Handler: router}}
}

// Run blocks serving the admin surface until Shutdown is called, matching
// net/http.Server's ListenAndServe/Shutdown contract.
func (s *AdminServer) Run() error {
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the admin surface.
func (s *AdminServer) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Package api exposes the gateway's admin surface: health, counters, latency
// percentiles, the pending-order snapshot, and the two WebSocket endpoints
// (order intake and event fan-out).
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"exec-gateway/internal/engine"
	"exec-gateway/internal/journal"
	"exec-gateway/internal/monitor"
	"exec-gateway/internal/transport"
)

// Server wires HTTP endpoints around the engine's observability surface.
type Server struct {
	Router    *gin.Engine
	Engine    *engine.Engine
	Stats     *monitor.Stats
	Histogram *monitor.LatencyHistogram
	Journal   *journal.Journal
	Hub       *transport.Hub
	Intake    *transport.IntakeQueue

	JWTSecret     string
	AdminPassHash string
	Meta          SystemMeta
	Log           zerolog.Logger

	limiters *ipLimiters
}

// SystemMeta describes the runtime exposed on /api/system/status.
type SystemMeta struct {
	InstanceID string   `json:"instance_id"`
	Version    string   `json:"version"`
	Venues     []string `json:"venues"`
	Paper      bool     `json:"paper"`
}

// NewServer builds the router with the shared middleware stack and routes.
func NewServer(eng *engine.Engine, stats *monitor.Stats, hist *monitor.LatencyHistogram, jrn *journal.Journal, hub *transport.Hub, intake *transport.IntakeQueue, meta SystemMeta, jwtSecret, adminPassHash string, log zerolog.Logger) *Server {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())

	s := &Server{
		Router:        r,
		Engine:        eng,
		Stats:         stats,
		Histogram:     hist,
		Journal:       jrn,
		Hub:           hub,
		Intake:        intake,
		JWTSecret:     jwtSecret,
		AdminPassHash: adminPassHash,
		Meta:          meta,
		Log:           log,
		limiters:      newIPLimiters(20, 50),
	}
	r.Use(RequestLogger(log))
	r.Use(s.limiters.Middleware())
	r.Use(CORSMiddleware())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/healthz", s.health)
	if s.Intake != nil {
		s.Router.GET("/ws/orders", s.Intake.Handler())
	}
	if s.Hub != nil {
		s.Router.GET("/ws/events", s.Hub.Handler())
	}

	api := s.Router.Group("/api")
	{
		api.GET("/system/status", s.getSystemStatus)
		api.GET("/stats", s.getStats)
		api.GET("/latency", s.getLatency)
		api.POST("/auth/token", s.login)

		protected := api.Group("")
		if s.JWTSecret != "" {
			protected.Use(AuthMiddleware(s.JWTSecret))
		}
		{
			protected.GET("/orders/pending", s.getPendingOrders)
			protected.GET("/journal/metrics", s.getJournalMetrics)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Start runs the HTTP listener; it blocks until the server stops.
func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}

func (s *Server) getSystemStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"instance_id": s.Meta.InstanceID,
		"version":     s.Meta.Version,
		"venues":      s.Meta.Venues,
		"paper":       s.Meta.Paper,
		"server_time": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *Server) getStats(c *gin.Context) {
	resp := gin.H{"counters": s.Stats.GetSnapshot()}
	if s.Engine != nil {
		resp["pending"] = s.Engine.PendingCount()
		resp["processed"] = s.Engine.ProcessedCount()
		resp["queue_depth"] = s.Engine.QueueDepth()
	}
	if s.Hub != nil {
		resp["subscribers"] = s.Hub.Subscribers()
	}
	if s.Intake != nil {
		resp["intake_depth"] = s.Intake.Depth()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getLatency(c *gin.Context) {
	if s.Histogram == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, s.Histogram.Stats())
}

func (s *Server) getPendingOrders(c *gin.Context) {
	if s.Engine == nil {
		c.JSON(http.StatusOK, []engine.PendingOrderView{})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	views, err := s.Engine.SnapshotPending(ctx)
	if err != nil {
		c.JSON(http.StatusGatewayTimeout, gin.H{
			"code":  "ENGINE_BUSY",
			"error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, views)
}

func (s *Server) getJournalMetrics(c *gin.Context) {
	if s.Journal == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, s.Journal.Metrics())
}

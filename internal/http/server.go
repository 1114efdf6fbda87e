package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	cryptoHTTP "github.com/credfolio/fieldvault/internal/crypto/http"
)

// ServerConfig carries the settings the API server needs from configuration.
type ServerConfig struct {
	Host                    string
	Port                    int
	GinMode                 string
	CORSEnabled             bool
	CORSAllowOrigins        string
	RateLimitEnabled        bool
	RateLimitRequestsPerSec float64
	RateLimitBurst          int
}

// Server is the admin HTTP server exposing key management and bulk
// encryption endpoints.
type Server struct {
	server *http.Server
	logger *slog.Logger
}

// NewServer creates the admin API server with its full middleware stack and
// routes. metricsMiddleware may be nil when metrics are disabled.
func NewServer(
	cfg ServerConfig,
	keyHandler *cryptoHTTP.KeyHandler,
	tableHandler *cryptoHTTP.TableHandler,
	metricsMiddleware gin.HandlerFunc,
	logger *slog.Logger,
) *Server {
	gin.SetMode(cfg.GinMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New())
	router.Use(LoggerMiddleware(logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if metricsMiddleware != nil {
		router.Use(metricsMiddleware)
	}

	if cfg.RateLimitEnabled {
		router.Use(RateLimitMiddleware(cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, logger))
		logger.Info("rate limiting enabled",
			slog.Float64("requests_per_sec", cfg.RateLimitRequestsPerSec),
			slog.Int("burst", cfg.RateLimitBurst))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")
	{
		keys := v1.Group("/keys")
		{
			keys.POST("", keyHandler.GenerateHandler)
			keys.GET("", keyHandler.ListHandler)
			keys.GET("/stats", keyHandler.StatsHandler)
			keys.GET("/expiring", keyHandler.ExpiringHandler)
			keys.GET("/audit", keyHandler.AuditLogHandler)
			keys.GET("/rotation-status", keyHandler.RotationStatusHandler)
			keys.POST("/rotation-cancel", keyHandler.RotationCancelHandler)
			keys.POST("/rotate", keyHandler.RotateHandler)
			keys.POST("/export", keyHandler.ExportHandler)
			keys.POST("/import", keyHandler.ImportHandler)
			keys.GET("/:id", keyHandler.GetHandler)
			keys.GET("/:id/verify", keyHandler.VerifyHandler)
			keys.POST("/:id/revoke", keyHandler.RevokeHandler)
		}

		v1.GET("/encryption/status", keyHandler.StatusHandler)

		tables := v1.Group("/tables")
		{
			tables.POST("/:table/encrypt", tableHandler.EncryptHandler)
			tables.GET("/:table/verify", tableHandler.VerifyHandler)
		}
	}

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Start begins listening. Blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

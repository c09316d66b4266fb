// Package server wires the HTTP surface: server-rendered pages with
// session-cookie auth, and a JSON API with bearer-token auth.
package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/gormstore"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hushd-dev/hushd/internal/accounts"
	"github.com/hushd-dev/hushd/internal/auth"
	"github.com/hushd-dev/hushd/internal/config"
	"github.com/hushd-dev/hushd/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// storeTimeout bounds every outbound call to the account store
const storeTimeout = 5 * time.Second

// Server represents the HTTP server
type Server struct {
	router  *gin.Engine
	handler http.Handler
	db      *gorm.DB
	config  *config.Config
	logger  zerolog.Logger
	authSvc *auth.Service
	version string
}

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	// Initialize database with production settings
	db, err := initDatabase(cfg, zlog)
	if err != nil {
		return nil, err
	}

	// Run database migrations
	if err := models.AutoMigrate(db); err != nil {
		return nil, err
	}

	store := accounts.NewStore(db)

	// Wire the authentication core
	authSvc, err := auth.NewService(store, cfg, zlog)
	if err != nil {
		return nil, err
	}

	// Persist sessions in the same database so they survive restarts;
	// gormstore also sweeps expired rows on an interval
	sessionStore, err := gormstore.NewWithCleanupInterval(db, time.Hour)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}
	authSvc.Sessions.SCS().Store = sessionStore

	server := &Server{
		db:      db,
		config:  cfg,
		logger:  zlog,
		authSvc: authSvc,
		version: version,
	}

	// Setup router
	server.setupRouter()

	// The session middleware wraps the whole router so every handler sees
	// a loaded session and writes are committed after the response
	server.handler = authSvc.Sessions.LoadAndSave(server.router)

	return server, nil
}

// initDatabase initializes the database connection with production settings
func initDatabase(cfg *config.Config, zlog zerolog.Logger) (*gorm.DB, error) {
	const (
		maxOpenConns    = 8
		maxIdleConns    = 4
		connMaxLifetime = 300 * time.Second
		busyTimeout     = 5000 // 5 seconds
	)

	// Open database connection
	db, err := gorm.Open(sqlite.Open(cfg.Database.URL), &gorm.Config{
		TranslateError: true,
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				LogLevel:                  logger.Error,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             200 * time.Millisecond,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Get underlying sql.DB to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// WAL mode must be set first for concurrent readers during writes
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
		"PRAGMA foreign_keys=1",
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			zlog.Warn().Str("pragma", pragma).Err(err).Msg("Failed to apply pragma")
		}
	}

	return db, nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	// CORS for the JSON API
	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	s.router.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.html")))

	// Health check endpoint (no auth required)
	s.router.GET("/health", s.healthCheck)

	// Public pages
	s.router.GET("/", s.homePage)
	s.router.GET("/login", s.loginPage)
	s.router.GET("/register", s.registerPage)

	// Local strategy endpoints
	s.router.POST("/login", s.login)
	s.router.POST("/register", s.register)
	s.router.GET("/logout", s.logout)

	// Federated strategy endpoints
	s.router.GET("/auth/google", s.googleRedirect)
	s.router.GET("/auth/google/callback", s.googleCallback)

	// Protected pages (session cookie required)
	protected := s.router.Group("")
	protected.Use(SessionAuthMiddleware(s.authSvc, s.logger))
	{
		protected.GET("/secrets", s.secretsPage)
		protected.GET("/submit", s.submitPage)
		protected.POST("/submit", s.submitSecret)
	}

	// JSON API (bearer token required)
	s.router.POST("/api/auth/login", s.apiLogin)
	api := s.router.Group("/api")
	api.Use(BearerAuthMiddleware(s.authSvc, s.logger))
	{
		api.GET("/auth/me", s.apiCurrentUser)
		api.GET("/secret", s.apiGetSecret)
		api.PUT("/secret", s.apiUpdateSecret)
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "hushd",
		"version":   s.version,
	})
}

// storeContext bounds a request context for account store calls
func storeContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), storeTimeout)
}

// Handler returns the full handler chain, session middleware included
func (s *Server) Handler() http.Handler {
	return s.handler
}

// GetDB returns the database connection
func (s *Server) GetDB() *gorm.DB {
	return s.db
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := ":" + s.config.Server.Port

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		s.logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	// Close database connection to flush WAL writes
	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Error closing database")
		}
	}

	s.logger.Info().Msg("Server shutdown complete")
	return nil
}

package api

import (
	"github.com/andrew-kemp/EasySwanVPN/internal/api/handlers"
	"github.com/andrew-kemp/EasySwanVPN/internal/api/middleware"
	"github.com/andrew-kemp/EasySwanVPN/internal/auth"
	"github.com/andrew-kemp/EasySwanVPN/internal/ca"
	"github.com/andrew-kemp/EasySwanVPN/internal/config"
	"github.com/andrew-kemp/EasySwanVPN/internal/db/repository"
	"github.com/andrew-kemp/EasySwanVPN/internal/policy"
	"github.com/andrew-kemp/EasySwanVPN/internal/session"
	"github.com/gin-gonic/gin"
)

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	config *config.Config
}

// NewServer creates a new API server
func NewServer(
	cfg *config.Config,
	machine *auth.Machine,
	sessions *session.Manager,
	registry *ca.Registry,
	validator *policy.Validator,
	auditRepo *repository.AuditRepository,
) *Server {
	// Set Gin mode
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.Sessions(sessions))

	// Create handlers
	authHandler := handlers.NewAuthHandler(machine, sessions, auditRepo)
	caHandler := handlers.NewCAHandler(cfg, registry, validator, auditRepo)
	certHandler := handlers.NewCertHandler(cfg, registry, validator, auditRepo)

	// API v1 routes
	v1 := router.Group("/v1")
	{
		// Login sequence
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/login", authHandler.Login)
			authGroup.GET("/mfa-setup", authHandler.MFASetup)
			authGroup.POST("/mfa-setup", authHandler.CompleteEnrollment)
			authGroup.POST("/mfa", authHandler.VerifyMFA)
			authGroup.POST("/logout", authHandler.Logout)
		}

		// CA management (requires a fully authenticated session)
		cas := v1.Group("/cas")
		cas.Use(middleware.RequireAuth())
		{
			cas.GET("", caHandler.ListCAs)
			cas.POST("", caHandler.GenerateCA)
			cas.POST("/import", caHandler.ImportCA)
			cas.POST("/select", caHandler.SelectCA)
		}

		// Certificate issuance
		certs := v1.Group("/certs")
		certs.Use(middleware.RequireAuth())
		{
			certs.POST("/issue", certHandler.IssueCertificate)
		}
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	return &Server{
		router: router,
		config: cfg,
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	return s.router.Run(s.config.Server.ListenAddr)
}

// Router returns the underlying Gin router
func (s *Server) Router() *gin.Engine {
	return s.router
}

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/andrew-kemp/EasySwanVPN/internal/api"
	"github.com/andrew-kemp/EasySwanVPN/internal/auth"
	"github.com/andrew-kemp/EasySwanVPN/internal/ca"
	"github.com/andrew-kemp/EasySwanVPN/internal/config"
	"github.com/andrew-kemp/EasySwanVPN/internal/db"
	"github.com/andrew-kemp/EasySwanVPN/internal/db/repository"
	"github.com/andrew-kemp/EasySwanVPN/internal/policy"
	"github.com/andrew-kemp/EasySwanVPN/internal/session"
	"github.com/andrew-kemp/EasySwanVPN/internal/store"
)

var (
	// Version information (set via ldflags)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "/etc/easyswanvpn/config.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("EasySwanVPN Portal\n")
		fmt.Printf("Version:    %s\n", Version)
		fmt.Printf("Commit:     %s\n", Commit)
		fmt.Printf("Build Time: %s\n", BuildTime)
		os.Exit(0)
	}

	log.Printf("Starting EasySwanVPN Portal %s (commit: %s)", Version, Commit)

	// Load configuration
	log.Printf("Loading configuration from %s", *configPath)
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	log.Printf("Connecting to database: %s", cfg.Database.Path)
	database, err := db.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	log.Printf("Running database migrations...")
	if err := db.RunMigrations(database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repositories
	auditRepo := repository.NewAuditRepository(database.DB)

	// Select the principal store backend
	var principals store.Store
	switch cfg.Storage.Backend {
	case "sqlite":
		principals = store.NewSQLiteStore(repository.NewPrincipalRepository(database.DB))
	default:
		principals = store.NewFileStore(cfg.Storage.PrincipalsPath)
	}
	log.Printf("Principal store backend: %s", cfg.Storage.Backend)

	// Open the CA registry
	log.Printf("Opening CA registry at %s", cfg.CA.Dir)
	registry, err := ca.NewRegistry(cfg.CA.Dir)
	if err != nil {
		log.Fatalf("Failed to open CA registry: %v", err)
	}

	// Authentication state machine
	verifier := &auth.LocalVerifier{
		Username:     cfg.Auth.Username,
		PasswordHash: cfg.Auth.PasswordHash,
	}
	machine := auth.NewMachine(verifier, principals, cfg.Auth.Issuer)

	// Session manager
	sessions := session.NewManager(cfg.GetSessionTTL())

	// Initialize policy validator
	validator := policy.NewValidator(cfg)

	// Create HTTP server
	server := api.NewServer(
		cfg,
		machine,
		sessions,
		registry,
		validator,
		auditRepo,
	)

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Start server in a goroutine
	go func() {
		log.Printf("Starting HTTP server on %s", cfg.Server.ListenAddr)
		if err := server.Run(); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("EasySwanVPN Portal is running")
	log.Printf("Press Ctrl+C to shutdown")

	// Wait for interrupt signal
	<-quit
	log.Printf("Shutting down server...")

	// Cleanup
	database.Close()

	log.Printf("Server stopped")
}

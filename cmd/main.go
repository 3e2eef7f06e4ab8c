package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dashport/dashport/audit"
	"github.com/dashport/dashport/auth"
	"github.com/dashport/dashport/config"
	"github.com/dashport/dashport/dashconfig"
	"github.com/dashport/dashport/server"
	"github.com/dashport/dashport/session"
	"github.com/dashport/dashport/userstore"
	"github.com/dashport/dashport/userstore/sqlite"
	"github.com/dashport/dashport/userstore/yamlfile"
)

var rootCmd = &cobra.Command{
	Use:   "dashport",
	Short: "dashport - self-hosted dashboard backend",
	Long: `dashport serves a shared household dashboard configuration (service
links, categories, port mappings, settings) behind a role-based
access-control layer with implicit trust for local clients.`,
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the dashport server",
	Long:  "Start the dashport server with the configured stores and API endpoints",
	RunE:  runServer,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  "Validate the dashport configuration and display the loaded settings",
	RunE:  validateConfig,
}

var configFilePath string

func main() {
	// Add flags to server command
	serverCmd.Flags().StringVarP(&configFilePath, "config", "c", "", "Path to configuration file")

	// Add subcommands
	configCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(serverCmd, configCmd)

	// If no command specified, default to server
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "server")
	}

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// runServer starts the dashport server
func runServer(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.LoadConfigFromFile(configFilePath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger, err := initializeLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			// Log to stderr since logger may not be working
			fmt.Fprintf(os.Stderr, "Failed to sync logger: %v\n", err)
		}
	}()

	logger.Info("Starting dashport server",
		zap.String("listen_addr", cfg.Server.ListenAddr),
		zap.String("user_store", cfg.UserStore.Type))

	// Initialize user store
	logger.Info("Initializing user store")
	var users userstore.Store
	switch cfg.UserStore.Type {
	case "sqlite":
		users, err = sqlite.NewStore(cfg.UserStore.SQLitePath, logger)
	default:
		users, err = yamlfile.NewStore(cfg.UserStore.Path, logger)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize user store: %w", err)
	}
	defer users.Close()

	// Initialize dashboard config store
	logger.Info("Initializing dashboard config store")
	dash, err := dashconfig.NewStore(cfg.Dashboard.Path, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize dashboard config store: %w", err)
	}

	// Initialize audit sink
	logger.Info("Initializing audit sink", zap.String("path", cfg.Audit.Path))
	auditor, err := audit.NewFileSink(cfg.Audit.Path, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize audit sink: %w", err)
	}
	defer func() {
		if err := auditor.Close(); err != nil {
			logger.Error("Failed to close audit sink", zap.Error(err))
		}
	}()

	// Initialize session manager and access-control core
	logger.Info("Initializing access-control core")
	sessions, err := session.NewManager(cfg.Auth.SessionCookieName, cfg.Auth.SessionSecret, cfg.Auth.SessionTTL)
	if err != nil {
		return fmt.Errorf("failed to initialize session manager: %w", err)
	}
	authn, err := auth.NewAuthenticator(users, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize authenticator: %w", err)
	}
	resolver := auth.NewIdentityResolver(users, logger)

	// Initialize HTTP router
	logger.Info("Initializing HTTP router")
	router := server.NewRouter(users, dash, authn, resolver, sessions, auditor, &cfg, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		if cfg.Server.CertFile != "" && cfg.Server.KeyFile != "" {
			logger.Info("Starting HTTPS server", zap.String("addr", cfg.Server.ListenAddr))
			if err := srv.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile); err != nil && err != http.ErrServerClosed {
				logger.Fatal("Failed to start server", zap.Error(err))
			}
			return
		}
		logger.Info("Starting HTTP server", zap.String("addr", cfg.Server.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Create a deadline for shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	logger.Info("Server exited gracefully")
	return nil
}

// validateConfig validates the dashport configuration and displays settings
func validateConfig(cmd *cobra.Command, args []string) error {
	fmt.Println("Validating configuration...")

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("❌ Configuration validation failed: %v\n", err)
		return err
	}

	fmt.Println("✅ Configuration is valid")
	fmt.Printf("Listen Address: %s\n", cfg.Server.ListenAddr)
	fmt.Printf("User Store: %s\n", cfg.UserStore.Type)
	if cfg.UserStore.Type == "sqlite" {
		fmt.Printf("User Store Path: %s\n", cfg.UserStore.SQLitePath)
	} else {
		fmt.Printf("User Store Path: %s\n", cfg.UserStore.Path)
	}
	fmt.Printf("Dashboard Config: %s\n", cfg.Dashboard.Path)
	fmt.Printf("Audit Log: %s\n", cfg.Audit.Path)
	fmt.Printf("Session Cookie: %s (ttl %s)\n", cfg.Auth.SessionCookieName, cfg.Auth.SessionTTL)

	return nil
}

// initializeLogger creates a zap logger based on configuration
func initializeLogger(logCfg config.LogConfig) (*zap.Logger, error) {
	var cfg zap.Config

	if logCfg.Format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	// Set log level
	switch logCfg.Level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	return cfg.Build()
}

// Copyright 2026 The VenueCore Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/venuecore/venuecore/internal/apitoken"
	"github.com/venuecore/venuecore/internal/audit"
	"github.com/venuecore/venuecore/internal/billing"
	"github.com/venuecore/venuecore/internal/comms"
	"github.com/venuecore/venuecore/internal/config"
	"github.com/venuecore/venuecore/internal/crm"
	"github.com/venuecore/venuecore/internal/events"
	"github.com/venuecore/venuecore/internal/identity"
	"github.com/venuecore/venuecore/internal/inventory"
	"github.com/venuecore/venuecore/internal/observability/logger"
	"github.com/venuecore/venuecore/internal/observability/metrics"
	"github.com/venuecore/venuecore/internal/observability/tracing"
	"github.com/venuecore/venuecore/internal/session"
	"github.com/venuecore/venuecore/internal/store/postgres"
	"github.com/venuecore/venuecore/internal/tenant"
	transportHTTP "github.com/venuecore/venuecore/internal/transport/http"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})
	slog.Info("starting venuecore")

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(cfg); err != nil {
			fmt.Printf("Migration failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if len(os.Args) > 1 && os.Args[1] == "bootstrap" {
		if err := runBootstrap(cfg); err != nil {
			fmt.Printf("Bootstrap failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Initialize context
	ctx := context.Background()

	// Initialize tracer
	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   1.0,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
	}
	defer tracer.Shutdown(ctx)

	// Initialize meter
	_, err = metrics.New(ctx, metrics.Config{
		Enabled: cfg.Observability.OTELEnabled,
	}, cfg.Observability.ServiceName)
	if err != nil {
		slog.Error("failed to initialize meter", logger.Error(err))
	}

	// Initialize directory database
	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Directory.Host,
		Port:         cfg.Directory.Port,
		User:         cfg.Directory.User,
		Password:     cfg.Directory.Password,
		Database:     cfg.Directory.Database,
		SSLMode:      cfg.Directory.SSLMode,
		MaxOpenConns: cfg.Directory.MaxOpenConns,
		MaxIdleConns: cfg.Directory.MaxIdleConns,
	})
	if err != nil {
		slog.Error("failed to connect to directory database", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to directory database")

	// Initialize directory repositories
	userRepo := postgres.NewUserRepository(db)
	storeSessionRepo := postgres.NewSessionRepository(db)
	tenantRepo := postgres.NewTenantRepository(db)
	dataSourceRepo := postgres.NewDataSourceRepository(db)
	membershipRepo := postgres.NewMembershipRepository(db)
	apiTokenRepo := postgres.NewAPITokenRepository(db)

	// Initialize tenant data source layer. Tenant-scoped repositories
	// draw their pool from the resolved tenant context at call time.
	poolManager := postgres.NewManager(cfg.Directory.MaxOpenConns, cfg.Directory.MaxIdleConns, slog.Default())
	defer poolManager.Close()
	resolver := tenant.NewResolver(tenantRepo, dataSourceRepo, poolManager, cfg.Security.DataSourceCacheTTL)

	accountRepo := postgres.NewAccountRepository()
	contactRepo := postgres.NewContactRepository()
	leadRepo := postgres.NewLeadRepository()
	opportunityRepo := postgres.NewOpportunityRepository()
	eventRepo := postgres.NewEventRepository()
	invoiceRepo := postgres.NewInvoiceRepository(db)
	paymentRepo := postgres.NewPaymentRepository()
	quoteRepo := postgres.NewQuoteRepository()
	contractRepo := postgres.NewContractRepository()
	inventoryRepo := postgres.NewInventoryRepository()
	communicationRepo := postgres.NewCommunicationRepository()

	// Initialize helpers
	auditLogger := audit.NewSlogLogger()
	passwordHasher := identity.NewPasswordHasher(
		cfg.Security.Argon2Memory,
		cfg.Security.Argon2Iterations,
		cfg.Security.Argon2Parallelism,
		cfg.Security.Argon2SaltLength,
		cfg.Security.Argon2KeyLength,
	)

	// Initialize services
	identityService := identity.NewService(
		userRepo,
		passwordHasher,
		auditLogger,
		cfg.Security.LockoutMaxAttempts,
		cfg.Security.LockoutDuration,
	)
	sessionService := session.NewService(storeSessionRepo, cfg.Session.Lifetime, cfg.Session.IdleTimeout)
	tenantService := tenant.NewService(tenantRepo, dataSourceRepo, membershipRepo, auditLogger, resolver)

	// Seed the first tenant and owner from the environment on a fresh
	// installation. No-op when unconfigured or already done.
	bootstrapService := identity.NewBootstrapService(identityService, tenantService, auditLogger)
	if err := bootstrapService.Bootstrap(ctx); err != nil {
		slog.Error("bootstrap failed", logger.Error(err))
		os.Exit(1)
	}
	apiTokenService := apitoken.NewService(apiTokenRepo, cfg.Security.APITokenSigningKey, cfg.Security.APITokenIssuer, auditLogger)
	crmService := crm.NewService(accountRepo, contactRepo, leadRepo, opportunityRepo, auditLogger)
	eventService := events.NewService(eventRepo, auditLogger)

	var gateway billing.Gateway
	if cfg.Integrations.PaymentBaseURL != "" {
		gateway = billing.NewHTTPGateway(
			cfg.Integrations.PaymentBaseURL,
			cfg.Integrations.PaymentAPIKey,
			cfg.Integrations.RequestTimeout,
			cfg.Integrations.MaxRetryTime,
		)
	}
	billingService := billing.NewService(invoiceRepo, paymentRepo, quoteRepo, contractRepo, gateway, auditLogger)

	inventoryService := inventory.NewService(inventoryRepo, auditLogger)

	var emailProvider comms.EmailProvider
	if cfg.Integrations.EmailBaseURL != "" {
		emailProvider = comms.NewHTTPEmailProvider(
			cfg.Integrations.EmailBaseURL,
			cfg.Integrations.EmailAPIKey,
			cfg.Integrations.RequestTimeout,
			cfg.Integrations.MaxRetryTime,
		)
	}
	var smsProvider comms.SMSProvider
	if cfg.Integrations.SMSBaseURL != "" {
		smsProvider = comms.NewHTTPSMSProvider(
			cfg.Integrations.SMSBaseURL,
			cfg.Integrations.SMSAPIKey,
			cfg.Integrations.RequestTimeout,
			cfg.Integrations.MaxRetryTime,
		)
	}
	commsService := comms.NewService(communicationRepo, contactRepo, emailProvider, smsProvider, auditLogger)

	// Rate Limiter
	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	// Configure SameSite mode
	sameSite := http.SameSiteLaxMode
	switch cfg.Session.CookieSameSite {
	case "Strict":
		sameSite = http.SameSiteStrictMode
	case "None":
		sameSite = http.SameSiteNoneMode
	}

	// Initialize HTTP handler
	handler := transportHTTP.NewHandler(
		identityService,
		sessionService,
		tenantService,
		crmService,
		eventService,
		billingService,
		inventoryService,
		commsService,
		apiTokenService,
		resolver,
		auditLogger,
		transportHTTP.SessionConfig{
			CookieName:     cfg.Session.CookieName,
			CookieDomain:   cfg.Session.CookieDomain,
			CookiePath:     cfg.Session.CookiePath,
			CookieSecure:   cfg.Session.CookieSecure,
			CookieHTTPOnly: cfg.Session.CookieHTTPOnly,
			CookieSameSite: sameSite,
		},
	)

	// Create router
	router := transportHTTP.NewRouter(handler, rateLimiter, cfg.Server.AllowedOrigins)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start session cleanup goroutine
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			removed, err := sessionService.CleanupExpired(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "failed to cleanup expired sessions", logger.Error(err))
				continue
			}
			if removed > 0 {
				slog.InfoContext(ctx, "cleaned up expired sessions", logger.RowsAffected(removed))
			}
		}
	}()

	// Start idle pool reaper goroutine
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			if closed := poolManager.Reap(cfg.Security.PoolIdleTimeout); closed > 0 {
				slog.Info("closed idle data source pools", slog.Int("pools", closed))
			}
		}
	}()

	// Start server
	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"))
		slog.Info(fmt.Sprintf("listening on %s", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", logger.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", logger.Error(err))
	}

	slog.Info("server stopped")
}

func runMigrate(cfg *config.Config) error {
	ctx := context.Background()
	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Directory.Host,
		Port:         cfg.Directory.Port,
		User:         cfg.Directory.User,
		Password:     cfg.Directory.Password,
		Database:     cfg.Directory.Database,
		SSLMode:      cfg.Directory.SSLMode,
		MaxOpenConns: cfg.Directory.MaxOpenConns,
		MaxIdleConns: cfg.Directory.MaxIdleConns,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Println("Applying directory schema...")
	if err := db.Migrate(ctx, postgres.DirectorySchema); err != nil {
		return err
	}
	fmt.Println("Migration successful.")
	return nil
}

func runBootstrap(cfg *config.Config) error {
	if os.Getenv(identity.EnvBootstrapOwnerEmail) == "" {
		return fmt.Errorf("%s must be set", identity.EnvBootstrapOwnerEmail)
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Directory.Host,
		Port:         cfg.Directory.Port,
		User:         cfg.Directory.User,
		Password:     cfg.Directory.Password,
		Database:     cfg.Directory.Database,
		SSLMode:      cfg.Directory.SSLMode,
		MaxOpenConns: cfg.Directory.MaxOpenConns,
		MaxIdleConns: cfg.Directory.MaxIdleConns,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	auditLogger := audit.NewSlogLogger()
	passwordHasher := identity.NewPasswordHasher(
		cfg.Security.Argon2Memory,
		cfg.Security.Argon2Iterations,
		cfg.Security.Argon2Parallelism,
		cfg.Security.Argon2SaltLength,
		cfg.Security.Argon2KeyLength,
	)
	identityService := identity.NewService(
		postgres.NewUserRepository(db),
		passwordHasher,
		auditLogger,
		cfg.Security.LockoutMaxAttempts,
		cfg.Security.LockoutDuration,
	)
	tenantService := tenant.NewService(
		postgres.NewTenantRepository(db),
		postgres.NewDataSourceRepository(db),
		postgres.NewMembershipRepository(db),
		auditLogger,
		nil,
	)

	return identity.NewBootstrapService(identityService, tenantService, auditLogger).Bootstrap(ctx)
}

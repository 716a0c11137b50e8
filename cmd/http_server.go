package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/checkout-payments/internal"
	"github.com/frahmantamala/checkout-payments/internal/auth"
	"github.com/frahmantamala/checkout-payments/internal/core/events"
	"github.com/frahmantamala/checkout-payments/internal/payment"
	paymentPostgres "github.com/frahmantamala/checkout-payments/internal/payment/postgres"
	"github.com/frahmantamala/checkout-payments/internal/paymentgateway"
	"github.com/frahmantamala/checkout-payments/internal/transport"
	"github.com/frahmantamala/checkout-payments/internal/transport/rest"
	"github.com/frahmantamala/checkout-payments/internal/transport/swagger"
	"github.com/frahmantamala/checkout-payments/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle checkout, notification and payment administration requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config         *internal.Config
	DB             *sqlx.DB
	Gorm           *gorm.DB
	Router         *chi.Mux
	EventBus       *events.EventBus
	PaymentService *payment.Service
	TokenValidator auth.TokenValidator
	Logger         *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	setupRoutes(deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		if err := deps.EventBus.Wait(ctx); err != nil {
			deps.Logger.Warn("Event handlers still running at shutdown", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) {
	baseHandler := transport.NewBaseHandler(deps.Logger)
	paymentHandler := payment.NewHandler(deps.PaymentService, deps.Logger)
	webhookHandler := payment.NewWebhookHandler(baseHandler, deps.PaymentService)

	rest.RegisterAllRoutes(
		deps.Router,
		deps.DB,
		paymentHandler,
		webhookHandler,
		deps.TokenValidator,
		deps.Config.Server.AllowedOrigins,
		deps.Logger,
	)
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfigAndLogger((*internal.Config).Validate)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	if _, err := swagger.LoadSpec(context.Background()); err != nil {
		return nil, err
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	gateway, err := newGatewayClient(config.Gateway, lg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	eventBus := events.NewEventBus(lg)
	payment.NewEventHandler(lg).RegisterEventHandlers(eventBus)

	paymentService := payment.NewService(
		paymentPostgres.NewPaymentRepository(gormDB),
		gateway,
		eventBus,
		lg,
	)

	deps := &Dependencies{
		Config:         config,
		DB:             db,
		Gorm:           gormDB,
		Router:         chi.NewRouter(),
		EventBus:       eventBus,
		PaymentService: paymentService,
		Logger:         lg,
	}

	if config.Security.AdminTokenSecret != "" {
		tokens, err := auth.NewJWTTokenService(config.Security.AdminTokenSecret, config.Security.AdminTokenDuration)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		deps.TokenValidator = tokens
	} else {
		lg.Warn("security.admin_token_secret is empty; payment administration routes are unauthenticated")
	}

	return deps, nil
}

func newGatewayClient(cfg internal.GatewayConfig, lg *slog.Logger) (*paymentgateway.Client, error) {
	location, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	return paymentgateway.NewClient(paymentgateway.Config{
		BaseURL:         cfg.BaseAPIURL,
		AccessToken:     cfg.AccessToken,
		NotificationURL: cfg.NotificationURL,
		Location:        location,
		Timeout:         cfg.RequestTimeout,
	}, lg.With("component", "payment_gateway")), nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm shares the sqlx connection pool with gorm.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
}

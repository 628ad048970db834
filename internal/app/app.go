// Package app assembles configuration, storage and domain services for the
// binaries under cmd/.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jerseyhouse/storefront/internal/config"
	"github.com/jerseyhouse/storefront/internal/database"
	"github.com/jerseyhouse/storefront/internal/domain"
	"github.com/jerseyhouse/storefront/internal/domain/messaging"
	"github.com/jerseyhouse/storefront/internal/payhere"
	"github.com/jerseyhouse/storefront/internal/storage/memory"
	pgstorage "github.com/jerseyhouse/storefront/internal/storage/postgres"
)

// App holds the wired services and the optional database handle.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	DB       *database.DB
	Services domain.Container
}

// Close releases the database, if any.
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

// Ready reports whether the storage backend can serve requests. The memory
// backend is always ready.
func (a *App) Ready(ctx context.Context) error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Check(ctx)
}

// Connect opens the configured database.
func Connect(ctx context.Context, cfg config.Config, logger *slog.Logger) (*database.DB, error) {
	return database.Connect(ctx, database.Options{
		Driver:          cfg.DatabaseDriver,
		DSN:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		PingTimeout:     cfg.DBPingTimeout,
		Logger:          logger,
	})
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, db *database.DB, logger *slog.Logger) error {
	migrator := database.NewSQLMigrator(db.DB, database.MigrationsFS(), database.MigrationsDir, logger)
	return db.RunMigrations(ctx, migrator)
}

// New connects storage for cfg.DataBackend and builds the domain container.
// Postgres databases are migrated on the way up.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	var opts domain.Options
	switch cfg.DataBackend {
	case "memory":
		logger.Info("using in-memory repositories (DATA_BACKEND=memory)")
		opts = domain.Options{
			CustomerRepo: memory.NewCustomerRepository(),
			ProductRepo:  memory.NewProductRepository(),
			DiscountRepo: memory.NewDiscountRepository(),
			SMSLogRepo:   memory.NewSMSLogRepository(),
			OTPRepo:      memory.NewOTPRepository(),
			DeliveryRepo: memory.NewDeliveryRepository(),
			OrderRepo:    memory.NewOrderRepository(),
			ImportRepo:   memory.NewImportBatchRepository(),
			AdminRepo:    memory.NewAdminRepository(),
		}
	case "postgres":
		db, err := Connect(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		if err := Migrate(ctx, db, logger); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		a.DB = db
		logger.Info("using postgres repositories (DATA_BACKEND=postgres)")
		sqlDB := db.DB
		opts = domain.Options{
			CustomerRepo: pgstorage.NewCustomerRepository(sqlDB),
			ProductRepo:  pgstorage.NewProductRepository(sqlDB),
			DiscountRepo: pgstorage.NewDiscountRepository(sqlDB),
			SMSLogRepo:   pgstorage.NewSMSLogRepository(sqlDB),
			OTPRepo:      pgstorage.NewOTPRepository(sqlDB),
			DeliveryRepo: pgstorage.NewDeliveryRepository(sqlDB),
			OrderRepo:    pgstorage.NewOrderRepository(sqlDB),
			ImportRepo:   pgstorage.NewImportBatchRepository(sqlDB),
			AdminRepo:    pgstorage.NewAdminRepository(sqlDB),
		}
	default:
		return nil, fmt.Errorf("unsupported data backend: %s", cfg.DataBackend)
	}

	opts.Logger = logger
	opts.SMSSender = messaging.LogSender{Logger: logger, SenderID: cfg.SMSSenderID}
	opts.PayHere = payhere.Config{
		MerchantID:     cfg.PayHereMerchantID,
		MerchantSecret: cfg.PayHereMerchantSecret,
		Currency:       cfg.PayHereCurrency,
		Sandbox:        cfg.PayHereSandbox,
		ReturnURL:      cfg.PayHereReturnURL,
		CancelURL:      cfg.PayHereCancelURL,
		NotifyURL:      cfg.PayHereNotifyURL,
	}
	opts.StoreName = cfg.StoreName
	opts.OTPTTL = cfg.OTPTTL
	opts.OTPResendCooldown = cfg.OTPResendCooldown
	opts.OTPMaxAttempts = cfg.OTPMaxAttempts
	opts.OTPVerifiedWindow = cfg.OTPVerifiedWindow
	opts.ShippingFeeCents = cfg.ShippingFeeCents
	opts.FreeShippingThresholdCents = cfg.FreeShippingThresholdCents
	opts.BulkConcurrency = cfg.BulkConcurrency

	a.Services = domain.New(opts)
	return a, nil
}

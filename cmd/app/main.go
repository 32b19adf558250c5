package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hardik-0129/backend/internal/booking"
	"github.com/hardik-0129/backend/internal/config"
	"github.com/hardik-0129/backend/internal/db"
	"github.com/hardik-0129/backend/internal/ledger"
	"github.com/hardik-0129/backend/internal/logger"
	"github.com/hardik-0129/backend/internal/match"
	"github.com/hardik-0129/backend/internal/notify"
	"github.com/hardik-0129/backend/internal/payment"
	"github.com/hardik-0129/backend/internal/referral"
	"github.com/hardik-0129/backend/internal/server"
	"github.com/hardik-0129/backend/internal/user"
	"github.com/hardik-0129/backend/internal/wallet"
	"github.com/hardik-0129/backend/internal/withdrawal"
	"github.com/redis/go-redis/v9"
)

// @title Arena Wallet API
// @version 1.0
// @description Wallet, booking and payout ledger for the tournament platform.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger.Init()
	logger.Info("Starting arena wallet service")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	logger.Info("Connecting to database...")
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	logger.Info("Database connected")

	if err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, ContextTimeoutEnabled: true})
	notifier := notify.New(rdb, cfg.NotifyMaxRetries)
	defer notifier.Close()

	transport, err := newTransport(cfg, rdb)
	if err != nil {
		logger.Fatalf("Failed to set up notify transport: %v", err)
	}
	notifier.Init(transport)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go notifier.Start(ctx)
	go reportQueue(ctx, notifier, 30*time.Second)

	store := ledger.NewRepository(database)
	referrals := referral.NewEngine(store, notifier, referral.Config{
		SignupBonus:    cfg.SignupBonus,
		FirstPaidBonus: cfg.FirstPaidBonus,
		Rate:           cfg.ReferralRate,
	})

	walletService := wallet.NewService(store, notifier, referrals)
	bookingService := booking.NewService(store, notifier, referrals)
	withdrawalService := withdrawal.NewService(store, notifier, referrals, withdrawal.Config{
		Minimum: cfg.MinWithdrawal,
		Method:  cfg.WithdrawalMethod,
	})
	userService := user.NewService(user.NewRepository(database), store, referrals, user.Config{
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.RefreshSecret,
		CodePrefix:    cfg.ReferralCodePrefix,
	})
	matchService := match.NewService(match.NewRepository(database), store, walletService)

	var gateway payment.Gateway
	if cfg.PaymentWebhookSecret != "" {
		gateway = payment.NewHMACGateway(cfg.PaymentWebhookSecret)
	} else {
		logger.Warn("PAYMENT_WEBHOOK_SECRET not set, deposits are disabled")
	}

	srv := server.New(cfg, server.Handlers{
		Users:       user.NewHandler(userService),
		Wallet:      wallet.NewHandler(walletService),
		Bookings:    booking.NewHandler(bookingService),
		Withdrawals: withdrawal.NewHandler(withdrawalService),
		Payments:    payment.NewHandler(payment.NewProcessor(gateway, walletService)),
		Matches:     match.NewHandler(matchService),
		Checks: map[string]server.Check{
			"postgres": database.PingContext,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
	})

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.Start(cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}

	cancel()
	if err := notifier.Shutdown(); err != nil {
		logger.Errorf("Error closing notify transport: %v", err)
	}

	logger.Info("Server stopped")
}

func newTransport(cfg *config.Config, rdb *redis.Client) (notify.Transport, error) {
	if cfg.NotifyTransport == "nats" {
		t, err := notify.NewNATSTransport(cfg.NATSURL)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
	return notify.NewRedisTransport(rdb), nil
}

func reportQueue(ctx context.Context, n *notify.Service, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.QueueLength(ctx)
		}
	}
}

package main

import (
	"context"   // Shutdown and Redis operations
	"errors"    // Server closed detection
	"net/http"  // HTTP server
	"os"        // Signals
	"os/signal" // Graceful shutdown
	"syscall"   // SIGTERM
	"time"      // Timeouts

	"tournament_bot/internal/api"       // Payment callback and admin API
	"tournament_bot/internal/bot"       // Telegram update routing
	"tournament_bot/internal/config"    // Custom package for configuration
	"tournament_bot/internal/db"        // Database connection
	"tournament_bot/internal/ledger"    // Wallet and tournament store
	"tournament_bot/internal/lock"      // Per-user locks
	"tournament_bot/internal/notify"    // Rate limited fan-out
	"tournament_bot/internal/otp"       // Mobile verification codes
	"tournament_bot/internal/payment"   // Gateway boundary
	"tournament_bot/internal/payout"    // Withdrawal decisions
	"tournament_bot/internal/scenes"    // Conversations
	"tournament_bot/internal/scheduler" // Reminders and start transitions
	"tournament_bot/internal/session"   // Scene session storage
	"tournament_bot/internal/telemetry" // Tracing
	"tournament_bot/internal/wizard"    // Scene engine

	"github.com/gin-gonic/gin"                                    // Gin web framework
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5" // Telegram client
	"github.com/redis/go-redis/v9"                                // Redis client
	"github.com/sirupsen/logrus"                                  // Logrus for structured logging
	"golang.org/x/sync/errgroup"                                  // Bot and HTTP server run side by side
)

var version = "dev" // Set with -ldflags at build time

const lockTTL = 30 * time.Second // Upper bound for one handled update

// Main function to set up and run the bot and its HTTP server
func main() {
	cfg, err := config.LoadConfig() // Load configuration
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	log := config.NewLogger(cfg) // Setup logger

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("failed to load timezone: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "tournament-bot", version, cfg.OTelEndpoint)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}

	gdb, err := db.Open(cfg, log) // Connect to the database
	if err != nil {
		log.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to Redis: %v", err)
	}

	store := ledger.New(gdb, log, ledger.WithReferralBonus(cfg.ReferralBonus))
	locker := lock.NewRedis(rdb, lockTTL)

	// Payment gateway; config refuses the sandbox in production
	var provider payment.Provider
	sandbox := cfg.PaymentGateway == "sandbox"
	if sandbox {
		provider = payment.NewSandbox(cfg.RazorpayKeySecret, cfg.PublicURL)
	} else {
		provider = payment.NewRazorpay(payment.RazorpayConfig{
			BaseURL:       cfg.RazorpayBaseURL,
			KeyID:         cfg.RazorpayKeyID,
			KeySecret:     cfg.RazorpayKeySecret,
			PayoutAccount: cfg.RazorpayPayoutAccount,
		}, log)
	}

	var codes otp.Sender = otp.NewDevSender(log) // Logs codes instead of texting them
	if cfg.SMSAPIURL != "" {
		codes = otp.NewHTTPSender(cfg.SMSAPIURL, cfg.SMSAPIKey, log)
	}

	tg, err := tgbotapi.NewBotAPI(cfg.BotToken) // Telegram client
	if err != nil {
		log.Fatalf("failed to connect to Telegram: %v", err)
	}
	messenger := bot.NewMessenger(tg)
	if err := messenger.SetCommands(bot.Commands); err != nil {
		log.WithError(err).Warn("Publishing bot commands failed")
	}

	notifier := notify.New(messenger, cfg.BroadcastRate, cfg.BroadcastWorkers, log)
	payouts := payout.New(store, provider, locker, notifier, log)

	sceneDeps := &scenes.Deps{
		Store:    store,
		Payments: provider,
		OTP:      codes,
		Notifier: notifier,
		Rules: scenes.Rules{
			MinDeposit:    cfg.MinDeposit,
			MinWithdrawal: cfg.MinWithdrawal,
			AdminIDs:      cfg.AdminTelegramIDs,
			MerchantUPI:   cfg.MerchantUPI,
		},
		Location:    loc,
		CallbackURL: cfg.WebhookURL,
		Log:         log,
	}
	engine := wizard.NewEngine(session.NewRedisStore(rdb, cfg.SessionTTL), locker, messenger, log, scenes.All(sceneDeps)...)

	b := bot.New(engine, sceneDeps, payouts, rdb, messenger, messenger, bot.Config{
		Username:  tg.Self.UserName,
		AdminIDs:  cfg.AdminTelegramIDs,
		JWTSecret: cfg.JWTSecret,
		JWTTTL:    cfg.JWTTTL,
		Workers:   cfg.UpdateWorkers,
	}, log)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}
	r := api.NewRouter(api.Deps{
		Store:     store,
		Payments:  provider,
		Payouts:   payouts,
		Notifier:  notifier,
		Rooms:     sceneDeps,
		Redis:     rdb,
		BotToken:  cfg.BotToken,
		JWTSecret: cfg.JWTSecret,
		JWTTTL:    cfg.JWTTTL,
		AdminIDs:  cfg.AdminTelegramIDs,
		Sandbox:   sandbox,
		Log:       log,
	})
	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		log.Fatalf("failed to set trusted proxies: %v", err)
	}
	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	cron, err := scheduler.Start(ctx, scheduler.NewJobs(store, notifier, loc, log), time.Minute)
	if err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", srv.Addr).Info("Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return b.Run(gctx, tg)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	runErr := g.Wait()

	// Stop background work before closing connections
	if err := cron.Shutdown(); err != nil {
		log.WithError(err).Warn("Scheduler shutdown failed")
	}
	sceneDeps.Wait() // Announcements already under way
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		log.WithError(err).Warn("Tracing shutdown failed")
	}
	_ = rdb.Close()
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}

	if runErr != nil {
		log.Fatalf("server stopped: %v", runErr)
	}
	log.Info("Shutdown complete")
}

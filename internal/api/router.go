// Package api is the HTTP surface: the payment gateway callback and the
// admin REST API.
package api

import (
	"net/http" // HTTP status codes
	"time"     // Token lifetimes

	"tournament_bot/internal/ledger"     // Ledger store
	"tournament_bot/internal/middleware" // Auth middleware
	"tournament_bot/internal/notify"     // User notifications
	"tournament_bot/internal/payment"    // Gateway boundary
	"tournament_bot/internal/payout"     // Withdrawal decisions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// Deps are the collaborators the routes need
type Deps struct {
	Store     *ledger.Store
	Payments  payment.Provider
	Payouts   *payout.Service
	Notifier  *notify.Broadcaster
	Rooms     RoomAnnouncer
	Redis     *redis.Client // nil disables caching
	BotToken  string
	JWTSecret string
	JWTTTL    time.Duration
	AdminIDs  []int64
	Sandbox   bool           // route sandbox payment links
	Log       *logrus.Logger // nil falls back to the standard logger
}

// NewRouter wires every route onto a fresh gin engine
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.WithLogger(d.Log), requestLogger())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.POST("/payments/callback", PaymentCallbackHandler(d.Store, d.Payments, d.Notifier))
	r.POST("/auth/telegram", TelegramLoginHandler(d.BotToken, d.JWTSecret, d.JWTTTL, 24*time.Hour))
	if d.Sandbox {
		r.GET("/sandbox/pay/:order_id", SandboxPayHandler(d.Store, d.Notifier))
	}

	// Admin routes (protected, admin only)
	admin := r.Group("/admin")
	admin.Use(middleware.JWTAuthMiddleware(d.JWTSecret), middleware.AdminOnlyMiddleware(d.Store, d.AdminIDs))
	admin.GET("/users", ListUsersHandler(d.Store, d.Redis))
	admin.POST("/users/:telegram_id/ban", SetBannedHandler(d.Store, true))
	admin.POST("/users/:telegram_id/unban", SetBannedHandler(d.Store, false))
	admin.GET("/transactions", ListTransactionsHandler(d.Store, d.Redis))
	admin.GET("/withdrawals", ListWithdrawalsHandler(d.Store))
	admin.POST("/withdrawals/:id/approve", ApproveWithdrawalHandler(d.Payouts))
	admin.POST("/withdrawals/:id/reject", RejectWithdrawalHandler(d.Payouts))
	admin.GET("/registrations/pending", ListPendingRegistrationsHandler(d.Store))
	admin.POST("/registrations/:ref/confirm", ConfirmRegistrationHandler(d.Store, d.Notifier, d.Rooms))
	admin.GET("/leaderboard", LeaderboardHandler(d.Store, d.Redis))
	admin.GET("/analytics", AnalyticsHandler(d.Store))
	return r
}

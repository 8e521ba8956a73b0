package api

import (
	"context"  // Context for cached loads
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"strings"  // String manipulation
	"time"     // Time parsing and cache TTLs

	"tournament_bot/internal/chat"       // Outbound message model
	"tournament_bot/internal/domain"     // Domain models
	"tournament_bot/internal/ledger"     // Ledger store
	"tournament_bot/internal/middleware" // Request logger
	"tournament_bot/internal/notify"     // User notifications
	"tournament_bot/internal/payout"     // Withdrawal decisions
	"tournament_bot/internal/utils"      // Cache helpers

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Money
	"github.com/sirupsen/logrus"    // Logging library
)

const adminCacheTTL = 60 * time.Second

// UserAdminResponse represents the user data returned to admin
type UserAdminResponse struct {
	ID         uint            `json:"id"`          // User ID
	TelegramID int64           `json:"telegram_id"` // Telegram account
	Username   string          `json:"username"`    // Telegram @username
	Name       string          `json:"name"`        // Full name
	Mobile     string          `json:"mobile"`      // Verified mobile
	UPIID      string          `json:"upi_id"`      // Payout UPI id
	GameName   string          `json:"game_name"`   // In-game name
	Balance    decimal.Decimal `json:"balance"`     // Wallet balance
	IsAdmin    bool            `json:"is_admin"`    // Admin flag
	IsBanned   bool            `json:"is_banned"`   // Ban flag
	CreatedAt  time.Time       `json:"created_at"`  // Registration time
}

// UsersPage is one page of users
type UsersPage struct {
	Users      []UserAdminResponse `json:"users"`       // List of users
	Page       int                 `json:"page"`        // Current page
	PageSize   int                 `json:"page_size"`   // Page size
	Total      int64               `json:"total"`       // Total number of users
	TotalPages int                 `json:"total_pages"` // Total pages
	Cached     bool                `json:"cached"`      // Served from cache
}

// TransactionsPage is one page of ledger rows
type TransactionsPage struct {
	Transactions []domain.Transaction `json:"transactions"` // List of transactions
	Page         int                  `json:"page"`         // Current page
	PageSize     int                  `json:"page_size"`    // Page size
	Total        int64                `json:"total"`        // Total number of transactions
	TotalPages   int                  `json:"total_pages"`  // Total pages
	Cached       bool                 `json:"cached"`       // Served from cache
}

// pagination reads page and page_size with the usual limits
func pagination(c *gin.Context) (page, pageSize int) {
	page, pageSize = 1, 20 // Defaults
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(c.Query("page_size")); err == nil && v > 0 && v <= 100 {
		pageSize = v
	}
	return page, pageSize
}

func totalPages(total int64, pageSize int) int {
	return (int(total) + pageSize - 1) / pageSize
}

// ListUsersHandler returns registered users, cached for a minute per page
func ListUsersHandler(store *ledger.Store, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, pageSize := pagination(c)
		cacheKey := "admin:users:page=" + strconv.Itoa(page) + ":size=" + strconv.Itoa(pageSize)
		resp, cached, err := utils.Cached(c.Request.Context(), rdb, cacheKey, adminCacheTTL, func(ctx context.Context) (UsersPage, error) {
			users, total, err := store.ListUsers(ctx, page, pageSize)
			if err != nil {
				return UsersPage{}, err
			}
			out := UsersPage{Users: make([]UserAdminResponse, len(users)), Page: page, PageSize: pageSize, Total: total, TotalPages: totalPages(total, pageSize)}
			for i, u := range users {
				out.Users[i] = UserAdminResponse{
					ID:         u.ID,
					TelegramID: u.TelegramID,
					Username:   u.Username,
					Name:       u.Name,
					Mobile:     u.Mobile,
					UPIID:      u.UPIID,
					GameName:   u.GameName,
					Balance:    u.Balance,
					IsAdmin:    u.IsAdmin,
					IsBanned:   u.IsBanned,
					CreatedAt:  u.CreatedAt,
				}
			}
			return out, nil
		})
		if err != nil {
			writeError(c, err)
			return
		}
		resp.Cached = cached
		c.JSON(http.StatusOK, resp)
	}
}

// parseTimeParam accepts RFC3339 or a plain date
func parseTimeParam(v string) (*time.Time, bool) {
	if v == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, true
		}
	}
	return nil, false
}

// ListTransactionsHandler returns ledger rows, optionally filtered by user, type or date
func ListTransactionsHandler(store *ledger.Store, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, pageSize := pagination(c)
		f := ledger.TxFilter{Type: c.Query("type"), Page: page, PageSize: pageSize}
		if v := c.Query("user_id"); v != "" {
			id, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
				return
			}
			f.UserID = uint(id)
		}
		var ok bool
		if f.From, ok = parseTimeParam(c.Query("from")); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from"})
			return
		}
		if f.To, ok = parseTimeParam(c.Query("to")); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to"})
			return
		}
		// Build cache key from all query params
		var keyParts []string
		for _, k := range []string{"user_id", "type", "from", "to"} {
			keyParts = append(keyParts, k+"="+c.Query(k))
		}
		keyParts = append(keyParts, "page="+strconv.Itoa(page), "page_size="+strconv.Itoa(pageSize))
		cacheKey := "admin:txs:" + strings.Join(keyParts, ":")

		resp, cached, err := utils.Cached(c.Request.Context(), rdb, cacheKey, adminCacheTTL, func(ctx context.Context) (TransactionsPage, error) {
			txs, total, err := store.Transactions(ctx, f)
			if err != nil {
				return TransactionsPage{}, err
			}
			return TransactionsPage{Transactions: txs, Page: page, PageSize: pageSize, Total: total, TotalPages: totalPages(total, pageSize)}, nil
		})
		if err != nil {
			writeError(c, err)
			return
		}
		resp.Cached = cached
		c.JSON(http.StatusOK, resp)
	}
}

// ListWithdrawalsHandler lists withdrawals, optionally by status
func ListWithdrawalsHandler(store *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := domain.WithdrawalStatus(c.Query("status"))
		switch status {
		case "", domain.WithdrawalPending, domain.WithdrawalCompleted, domain.WithdrawalRejected:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
			return
		}
		ws, err := store.Withdrawals(c.Request.Context(), status)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"withdrawals": ws})
	}
}

func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return uint(id), true
}

// ApproveWithdrawalHandler pays a pending withdrawal out
func ApproveWithdrawalHandler(payouts *payout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		w, err := payouts.Approve(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"withdrawal": w})
	}
}

// RejectRequest optionally explains a rejection to the user
type RejectRequest struct {
	Note string `json:"note"` // Shown to the user
}

// RejectWithdrawalHandler refunds a pending withdrawal
func RejectWithdrawalHandler(payouts *payout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var req RejectRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
				return
			}
		}
		w, err := payouts.Reject(c.Request.Context(), id, strings.TrimSpace(req.Note))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"withdrawal": w})
	}
}

// RoomAnnouncer hands out room credentials once a tournament is full
type RoomAnnouncer interface {
	AnnounceRoom(ctx context.Context, t *domain.Tournament) notify.Report
}

// ConfirmRegistrationHandler admits a directly paid registration
func ConfirmRegistrationHandler(store *ledger.Store, notifier *notify.Broadcaster, rooms RoomAnnouncer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		res, err := ConfirmRegistration(ctx, middleware.Logger(c), store, notifier, rooms, c.Param("ref"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"registration": res.Registration,
			"tournament":   res.Tournament,
			"became_ready": res.BecameReady,
		})
	}
}

// ConfirmRegistration is shared by the API and the bot's confirm button
func ConfirmRegistration(ctx context.Context, log logrus.FieldLogger, store *ledger.Store, notifier *notify.Broadcaster, rooms RoomAnnouncer, ref string) (*ledger.JoinResult, error) {
	res, err := store.ConfirmPendingRegistration(ctx, ref)
	if err != nil {
		return nil, err
	}
	if u, err := store.UserByID(ctx, res.Registration.UserID); err == nil {
		notifier.Notify(ctx, u.TelegramID, chat.Text("✅ Your payment was confirmed. You're in "+res.Tournament.Name+"!"))
	} else {
		log.WithFields(logrus.Fields{"user_id": res.Registration.UserID, "error": err.Error()}).Error("Registrant lookup failed")
	}
	if res.BecameReady {
		rooms.AnnounceRoom(ctx, res.Tournament)
	}
	return res, nil
}

// ListPendingRegistrationsHandler lists direct payments awaiting confirmation
func ListPendingRegistrationsHandler(store *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		regs, err := store.PendingRegistrations(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"registrations": regs})
	}
}

// SetBannedHandler bans or unbans a Telegram account
func SetBannedHandler(store *ledger.Store, banned bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tgID, err := strconv.ParseInt(c.Param("telegram_id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid telegram_id"})
			return
		}
		if err := store.SetBanned(c.Request.Context(), tgID, banned); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"telegram_id": tgID, "banned": banned})
	}
}

// LeaderboardHandler returns the top players, cached for a minute
func LeaderboardHandler(store *ledger.Store, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 10
		if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 50 {
			limit = v
		}
		board, cached, err := utils.Cached(c.Request.Context(), rdb, LeaderboardKey(limit), adminCacheTTL, func(ctx context.Context) (*ledger.Leaderboard, error) {
			return store.Leaderboard(ctx, limit)
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"leaderboard": board, "cached": cached})
	}
}

// AnalyticsHandler returns the dashboard totals
func AnalyticsHandler(store *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, err := store.Analytics(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, a)
	}
}

// LeaderboardKey is the cache key for a leaderboard of limit rows
func LeaderboardKey(limit int) string { return "leaderboard:" + strconv.Itoa(limit) }

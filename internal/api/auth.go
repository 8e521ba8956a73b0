package api

import (
	"crypto/hmac"   // initData signature
	"crypto/sha256" // initData signature
	"encoding/hex"  // Hash encoding
	"encoding/json" // Embedded user object
	"net/http"      // HTTP status codes
	"net/url"       // initData is a query string
	"sort"          // Data-check-string ordering
	"strconv"       // auth_date parsing
	"strings"       // String manipulation
	"time"          // Token lifetime and freshness

	"tournament_bot/internal/middleware" // Request logger
	"tournament_bot/internal/utils"      // JWT utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// LoginRequest carries Telegram Web App initData
type LoginRequest struct {
	InitData string `json:"init_data" binding:"required"` // Raw initData query string
}

// AuthResponse is the issued API token
type AuthResponse struct {
	Token string `json:"token"` // JWT token
}

// TelegramUser is the user object embedded in initData
type TelegramUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

// TelegramLoginHandler exchanges signed initData for an API token. The
// token only identifies the account; admin routes still check the role.
func TelegramLoginHandler(botToken, jwtSecret string, ttl, maxAge time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		user, ok := ValidateInitData(req.InitData, botToken, maxAge, time.Now())
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		token, err := utils.GenerateJWT(user.ID, jwtSecret, ttl)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		middleware.Logger(c).WithFields(logrus.Fields{"telegram_id": user.ID, "username": user.Username}).Info("API token issued")
		c.JSON(http.StatusOK, AuthResponse{Token: token})
	}
}

// ValidateInitData checks the Web App signature: the hash is
// HMAC-SHA256(data-check-string, HMAC-SHA256(botToken, "WebAppData")) over
// the sorted key=value lines without hash. maxAge zero skips the
// auth_date freshness check.
func ValidateInitData(initData, botToken string, maxAge time.Duration, now time.Time) (*TelegramUser, bool) {
	if botToken == "" {
		return nil, false
	}
	params, err := url.ParseQuery(initData)
	if err != nil {
		return nil, false
	}
	hash := params.Get("hash")
	if hash == "" {
		return nil, false
	}
	if !hmac.Equal([]byte(SignInitData(params, botToken)), []byte(hash)) {
		return nil, false
	}
	if maxAge > 0 {
		ts, err := strconv.ParseInt(params.Get("auth_date"), 10, 64)
		if err != nil || now.Sub(time.Unix(ts, 0)) > maxAge {
			return nil, false
		}
	}
	var user TelegramUser
	if err := json.Unmarshal([]byte(params.Get("user")), &user); err != nil || user.ID == 0 {
		return nil, false
	}
	return &user, true
}

// SignInitData computes the hash Telegram attaches to initData
func SignInitData(params url.Values, botToken string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k != "hash" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+params.Get(k))
	}

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}

package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requiredEnv sets the keys Parse cannot default
func requiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("JWT_SECRET", "dev-secret")
}

func TestParseDefaults(t *testing.T) {
	requiredEnv(t)

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, "8080", cfg.AppPort)
	assert.True(t, cfg.MinDeposit.Equal(decimal.NewFromInt(10)))
	assert.True(t, cfg.MinWithdrawal.Equal(decimal.NewFromInt(100)))
	assert.True(t, cfg.ReferralBonus.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "sandbox", cfg.PaymentGateway)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())
}

func TestParseOverrides(t *testing.T) {
	requiredEnv(t)
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("ADMIN_TELEGRAM_IDS", "11,22")
	t.Setenv("MIN_WITHDRAWAL", "250.50")
	t.Setenv("SESSION_TTL", "30m")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, []int64{11, 22}, cfg.AdminTelegramIDs)
	assert.Equal(t, "250.5", cfg.MinWithdrawal.String())
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
}

func TestParseRejectsBadValues(t *testing.T) {
	requiredEnv(t)
	t.Setenv("DB_DRIVER", "oracle")
	_, err := Parse()
	assert.Error(t, err)

	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("BOT_TIMEZONE", "Mars/Olympus")
	_, err = Parse()
	assert.Error(t, err)

	t.Setenv("BOT_TIMEZONE", "UTC")
	t.Setenv("MIN_DEPOSIT", "ten")
	_, err = Parse()
	assert.Error(t, err)

	t.Setenv("MIN_DEPOSIT", "10")
	t.Setenv("PAYMENT_GATEWAY", "paypal")
	_, err = Parse()
	assert.ErrorContains(t, err, "PAYMENT_GATEWAY")
}

func TestParseRequiresTokenAndSecret(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("JWT_SECRET", "")
	_, err := Parse()
	assert.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "dev-secret")
	t.Setenv("BOT_TOKEN", "")
	_, err = Parse()
	assert.ErrorContains(t, err, "BOT_TOKEN")
}

func TestParseProductionNeedsRealGateway(t *testing.T) {
	requiredEnv(t)
	t.Setenv("IS_PROD", "true")

	_, err := Parse()
	assert.ErrorContains(t, err, "PAYMENT_GATEWAY=razorpay", "sandbox must not run in production")

	t.Setenv("PAYMENT_GATEWAY", "razorpay")
	_, err = Parse()
	assert.ErrorContains(t, err, "RAZORPAY_KEY_SECRET")

	t.Setenv("RAZORPAY_KEY_ID", "rzp_live_1")
	t.Setenv("RAZORPAY_KEY_SECRET", "gateway-secret")
	_, err = Parse()
	assert.ErrorContains(t, err, "JWT_SECRET", "short signing keys are refused")

	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	cfg, err := Parse()
	require.NoError(t, err)
	assert.True(t, cfg.IsProd)
	assert.Equal(t, "razorpay", cfg.PaymentGateway)
}

func TestNewLogger(t *testing.T) {
	log := NewLogger(&Config{IsProd: true, LogLevel: "debug"})
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	log = NewLogger(&Config{LogLevel: "nonsense"})
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

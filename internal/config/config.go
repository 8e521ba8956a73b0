package config

import (
	"errors"  // Production checks
	"fmt"     // Error wrapping
	"reflect" // Parser registration for custom types
	"time"    // Durations and time zones

	"github.com/caarlos0/env/v11"   // Struct tag based env parsing
	"github.com/joho/godotenv"      // For loading .env files
	"github.com/shopspring/decimal" // Money amounts
)

// Config holds the application configuration
type Config struct {
	BotToken string `env:"BOT_TOKEN,required,notEmpty"` // Telegram bot token
	AppPort  string `env:"APP_PORT" envDefault:"8080"`  // HTTP port for the webhook and admin API
	IsProd   bool   `env:"IS_PROD"`                     // Is production environment
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"` // logrus level name

	DBDriver   string `env:"DB_DRIVER" envDefault:"mysql"`     // mysql or postgres
	DBUser     string `env:"DB_USER"`                          // Database user
	DBPassword string `env:"DB_PASSWORD"`                      // Database password
	DBHost     string `env:"DB_HOST" envDefault:"127.0.0.1"`   // Database host
	DBPort     string `env:"DB_PORT" envDefault:"3306"`        // Database port
	DBName     string `env:"DB_NAME" envDefault:"tournaments"` // Database name
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`  // Postgres sslmode

	RedisAddr string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"` // Redis server address
	RedisPass string `env:"REDIS_PASS"`                             // Redis password
	RedisDB   int    `env:"REDIS_DB"`                               // Redis database number

	JWTSecret        string        `env:"JWT_SECRET,required,notEmpty"`           // Admin API signing key
	JWTTTL           time.Duration `env:"JWT_TTL" envDefault:"24h"`               // Admin API token lifetime
	AdminTelegramIDs []int64       `env:"ADMIN_TELEGRAM_IDS" envSeparator:","`    // Always-admin Telegram ids
	Timezone         string        `env:"BOT_TIMEZONE" envDefault:"Asia/Kolkata"` // Zone used to read and show tournament times

	PaymentGateway        string `env:"PAYMENT_GATEWAY" envDefault:"sandbox"`                       // razorpay or sandbox
	RazorpayKeyID         string `env:"RAZORPAY_KEY_ID"`                                            // Gateway key id
	RazorpayKeySecret     string `env:"RAZORPAY_KEY_SECRET"`                                        // Gateway secret, also signs callbacks
	RazorpayPayoutAccount string `env:"RAZORPAY_PAYOUT_ACCOUNT"`                                    // Account number payouts are drawn from
	RazorpayBaseURL       string `env:"RAZORPAY_BASE_URL" envDefault:"https://api.razorpay.com/v1"` // Gateway API root
	WebhookURL            string `env:"WEBHOOK_URL"`                                                // Public URL of the payment callback
	MerchantUPI           string `env:"MERCHANT_UPI_ID"`                                            // UPI id shown for direct entry fee payments
	PublicURL             string `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`              // Base of sandbox payment links

	SMSAPIURL string `env:"SMS_API_URL"` // OTP gateway endpoint, dev sender when empty
	SMSAPIKey string `env:"SMS_API_KEY"` // OTP gateway key

	MinDeposit    decimal.Decimal `env:"MIN_DEPOSIT" envDefault:"10"`     // Smallest deposit accepted
	MinWithdrawal decimal.Decimal `env:"MIN_WITHDRAWAL" envDefault:"100"` // Smallest withdrawal accepted
	ReferralBonus decimal.Decimal `env:"REFERRAL_BONUS" envDefault:"10"`  // Credited to both sides of a referral

	SessionTTL       time.Duration `env:"SESSION_TTL" envDefault:"24h"`     // Idle scene sessions expire after this
	BroadcastRate    float64       `env:"BROADCAST_RATE" envDefault:"20"`   // Messages per second for fan-out
	BroadcastWorkers int           `env:"BROADCAST_WORKERS" envDefault:"4"` // Concurrent senders for fan-out
	UpdateWorkers    int           `env:"UPDATE_WORKERS" envDefault:"16"`   // Concurrent update handlers

	OTelEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"` // Tracing collector, disabled when empty
}

// decimalParser lets env fill decimal.Decimal fields
var decimalParser = map[reflect.Type]env.ParserFunc{
	reflect.TypeOf(decimal.Decimal{}): func(v string) (any, error) {
		return decimal.NewFromString(v) // Parse the raw string
	},
}

// LoadConfig loads configuration from the environment, reading .env first if present
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // Load .env file if present
	return Parse()
}

// Parse builds a Config from the current environment only
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{FuncMap: decimalParser}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err) // Wrap parse failure
	}
	if cfg.DBDriver != "mysql" && cfg.DBDriver != "postgres" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if cfg.PaymentGateway != "razorpay" && cfg.PaymentGateway != "sandbox" {
		return nil, fmt.Errorf("unsupported PAYMENT_GATEWAY %q", cfg.PaymentGateway)
	}
	if cfg.IsProd {
		if err := cfg.checkProduction(); err != nil {
			return nil, err
		}
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err // Reject unknown zones early
	}
	return cfg, nil
}

// checkProduction refuses settings that would let money move without a
// real gateway behind it
func (c *Config) checkProduction() error {
	switch {
	case c.PaymentGateway != "razorpay":
		return fmt.Errorf("IS_PROD requires PAYMENT_GATEWAY=razorpay, got %q", c.PaymentGateway)
	case c.RazorpayKeyID == "" || c.RazorpayKeySecret == "":
		return errors.New("IS_PROD requires RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET")
	case len(c.JWTSecret) < 32:
		return errors.New("IS_PROD requires a JWT_SECRET of at least 32 characters")
	}
	return nil
}

// Location resolves the configured time zone
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

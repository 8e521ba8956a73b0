package db

import (
	"fmt"  // DSN building
	"time" // UTC clock for GORM timestamps

	"tournament_bot/internal/config" // Custom package for configuration

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/driver/mysql"       // MySQL driver for GORM
	"gorm.io/driver/postgres"    // PostgreSQL driver for GORM
	"gorm.io/gorm"               // GORM ORM library
	"gorm.io/gorm/logger"        // GORM query logger
)

const slowQuery = 200 * time.Millisecond // Queries above this are logged as slow

// GormConfig is shared by every dialect, including the SQLite one used in tests.
// Query logs go through log; a missing row is a normal lookup result, not an error.
func GormConfig(log *logrus.Logger, debug bool) *gorm.Config {
	level := logger.Warn // Only slow queries and errors by default
	if debug {
		level = logger.Info // Every statement when debugging
	}
	return &gorm.Config{
		NowFunc:        func() time.Time { return time.Now().UTC() }, // Store timestamps in UTC
		TranslateError: true,                                         // Map driver errors to gorm.ErrDuplicatedKey etc.
		Logger: logger.New(log.WithField("component", "gorm"), logger.Config{
			SlowThreshold:             slowQuery,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		}),
	}
}

// Dialector picks the driver named by DB_DRIVER
func Dialector(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DBDriver {
	case "mysql":
		// Setup Data Source Name (DSN) for MySQL
		dsn := cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName + "?parseTime=true&loc=UTC&charset=utf8mb4"
		return mysql.Open(dsn), nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// Open connects to the configured database
func Open(cfg *config.Config, log *logrus.Logger) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, GormConfig(log, cfg.LogLevel == "debug"))
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.DBDriver, err) // Wrap connection failure
	}
	return db, nil
}

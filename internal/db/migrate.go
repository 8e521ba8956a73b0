package db

import (
	"fmt" // Error wrapping

	"tournament_bot/internal/domain" // Importing domain models

	"gorm.io/gorm" // GORM ORM library
)

// Models lists every table owned by the bot
func Models() []any {
	return []any{
		&domain.User{},             // Players and admins
		&domain.PendingReferral{},  // Referral links awaiting registration
		&domain.Tournament{},       // Tournaments
		&domain.Registration{},     // Tournament entries
		&domain.Transaction{},      // Append-only ledger
		&domain.Withdrawal{},       // Withdrawal requests
		&domain.Payment{},          // Gateway deposits
		&domain.TournamentResult{}, // Per-player results
	}
}

// Migrate performs automatic migration for the database schema
func Migrate(db *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("migrate: %w", err) // Wrap migration failure
	}
	return nil
}

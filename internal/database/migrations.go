package database

import (
	"fmt"

	"go.uber.org/zap"
)

// Migrate runs all database migrations
func (db *DB) Migrate() error {
	log := db.log
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("running migrations")

	migrations := []string{
		// Profiles table
		`CREATE TABLE IF NOT EXISTS profiles (
			user_id INTEGER PRIMARY KEY,
			city_label TEXT NOT NULL DEFAULT '',
			lat REAL,
			lon REAL,
			tz TEXT NOT NULL DEFAULT '',
			daily_time TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_profiles_daily_time ON profiles(daily_time)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}

	log.Info("migrations completed")
	return nil
}

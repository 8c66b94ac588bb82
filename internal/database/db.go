package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// DB - подключение к SQLite.
type DB struct {
	*sql.DB
	log *zap.Logger
}

// New открывает базу по пути, создавая каталог при необходимости.
func New(path string, log *zap.Logger) (*DB, error) {
	if log == nil {
		log = zap.NewNop()
	}

	if dir := filepath.Dir(path); dir != "." && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	// Одно соединение: транзакции профилей выполняются строго по очереди.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	log.Info("database opened", zap.String("path", path))
	return &DB{DB: db, log: log}, nil
}

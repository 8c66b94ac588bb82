package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/artur/pogoda-bot/internal/database/models"
)

// ProfileRepository handles profile persistence in SQLite
type ProfileRepository struct {
	db *sql.DB
}

// NewProfileRepository creates a new ProfileRepository
func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

const selectProfile = `
	SELECT user_id, city_label, lat, lon, tz, daily_time
	FROM profiles
`

func scanProfile(row rowScanner) (int64, models.Profile, error) {
	var (
		userID    int64
		p         models.Profile
		lat, lon  sql.NullFloat64
		dailyTime sql.NullString
	)
	if err := row.Scan(&userID, &p.CityLabel, &lat, &lon, &p.TZ, &dailyTime); err != nil {
		return 0, models.Profile{}, err
	}
	if lat.Valid {
		p.Lat = &lat.Float64
	}
	if lon.Valid {
		p.Lon = &lon.Float64
	}
	if dailyTime.Valid && dailyTime.String != "" {
		p.Daily = &models.Daily{Time: dailyTime.String}
	}
	return userID, p, nil
}

// GetOrCreate returns the profile, inserting an empty row when absent
func (r *ProfileRepository) GetOrCreate(ctx context.Context, userID int64) (models.Profile, error) {
	if _, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO profiles (user_id) VALUES (?)`, userID); err != nil {
		return models.Profile{}, fmt.Errorf("failed to create profile: %w", err)
	}

	_, p, err := scanProfile(r.db.QueryRowContext(ctx, selectProfile+` WHERE user_id = ?`, userID))
	if err != nil {
		return models.Profile{}, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// Update applies fn to the stored profile and writes it back in one transaction
func (r *ProfileRepository) Update(ctx context.Context, userID int64, fn func(*models.Profile) error) (models.Profile, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Profile{}, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	_, current, err := scanProfile(tx.QueryRowContext(ctx, selectProfile+` WHERE user_id = ?`, userID))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, fmt.Errorf("failed to get profile: %w", err)
	}

	next := current.Clone()
	if err := fn(&next); err != nil {
		return current, err
	}

	var dailyTime any
	if next.Daily != nil {
		dailyTime = next.Daily.Time
	}

	query := `
		INSERT INTO profiles (user_id, city_label, lat, lon, tz, daily_time, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			city_label = excluded.city_label,
			lat = excluded.lat,
			lon = excluded.lon,
			tz = excluded.tz,
			daily_time = excluded.daily_time,
			updated_at = excluded.updated_at
	`
	if _, err := tx.ExecContext(ctx, query,
		userID,
		next.CityLabel,
		nullFloat(next.Lat),
		nullFloat(next.Lon),
		next.TZ,
		dailyTime,
		time.Now(),
	); err != nil {
		return current, fmt.Errorf("failed to upsert profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return current, fmt.Errorf("failed to commit profile: %w", err)
	}
	return next, nil
}

// All returns every stored profile keyed by user id
func (r *ProfileRepository) All(ctx context.Context) (map[int64]models.Profile, error) {
	rows, err := r.db.QueryContext(ctx, selectProfile)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]models.Profile)
	for rows.Next() {
		id, p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		out[id] = p
	}
	return out, rows.Err()
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

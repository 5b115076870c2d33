// Package store persists attendance records and profiles. Two backends share
// one contract: PostgreSQL through pgx and an embedded SQLite database.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/sreeshanth-soma/erpScraper/internal/attendance"
	"github.com/sreeshanth-soma/erpScraper/internal/config"
)

// ErrNotFound is returned when no record exists for the owner.
var ErrNotFound = errors.New("no attendance record found")

// Repository is the storage contract used by the scraper and the API.
type Repository interface {
	// SaveDaily writes rec, replacing any record for the same owner and
	// calendar date. The owner's profile is created if missing.
	SaveDaily(ctx context.Context, rec attendance.Record) (attendance.Record, error)
	// Latest returns the owner's most recent record or ErrNotFound.
	Latest(ctx context.Context, owner string) (attendance.Record, error)
	// Profile returns the owner's profile, creating it with the default goal.
	Profile(ctx context.Context, owner string) (attendance.Profile, error)
	SetGoal(ctx context.Context, owner string, goal float64) (attendance.Profile, error)
	Close() error
}

// Open connects to the configured backend and makes sure the schema exists.
func Open(ctx context.Context, cfg config.DatabaseConfig, defaultGoal float64, logger *zap.Logger) (Repository, error) {
	switch cfg.Driver {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create database connection pool: %w", err)
		}
		s, err := New(ctx, pool, defaultGoal, logger)
		if err != nil {
			pool.Close()
			return nil, err
		}
		if err := s.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return s, nil
	case "sqlite":
		return OpenSQLite(ctx, cfg.Path, defaultGoal, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func validateForSave(rec attendance.Record) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid record: %w", err)
	}
	if rec.CalendarDate.IsZero() {
		return fmt.Errorf("refusing to save record without a calendar date")
	}
	return nil
}

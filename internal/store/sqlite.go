package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sreeshanth-soma/erpScraper/internal/attendance"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLite is the embedded Repository. Dates are stored as YYYY-MM-DD and
// timestamps as RFC 3339 in UTC.
type SQLite struct {
	db          *sql.DB
	defaultGoal float64
	log         *zap.Logger
}

var _ Repository = (*SQLite)(nil)

// OpenSQLite opens (or creates) the database at path and applies pending
// migrations. ":memory:" gives a private in-memory database.
func OpenSQLite(ctx context.Context, path string, defaultGoal float64, logger *zap.Logger) (*SQLite, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection: avoids "database is locked" and keeps :memory: a single database.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %q: %w", pragma, err)
		}
	}

	s := &SQLite{db: db, defaultGoal: defaultGoal, log: logger.Named("store")}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at TEXT DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var applied int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&applied); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if applied > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}
		if err := s.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, string(content)); err != nil {
				return fmt.Errorf("applying migration %d: %w", version, err)
			}
			if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
				return fmt.Errorf("recording migration %d: %w", version, err)
			}
			return nil
		}); err != nil {
			return err
		}
		s.log.Debug("Applied migration.", zap.Int("version", version))
	}
	return nil
}

// parseMigrationVersion reads the numeric prefix of e.g. "0001_init.sql".
func parseMigrationVersion(name string) (int, error) {
	prefix, _, ok := strings.Cut(name, "_")
	if !ok {
		return 0, fmt.Errorf("migration %q has no version prefix", name)
	}
	v, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, fmt.Errorf("migration %q has an invalid version prefix: %w", name, err)
	}
	return v, nil
}

func (s *SQLite) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.log.Error("Failed to rollback transaction", zap.Error(rbErr))
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLite) SaveDaily(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	if err := validateForSave(rec); err != nil {
		return attendance.Record{}, err
	}
	rec.RecordedAt = rec.RecordedAt.UTC()

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO profiles (owner, attendance_goal) VALUES (?, ?) ON CONFLICT (owner) DO NOTHING`,
			rec.Owner, s.defaultGoal,
		); err != nil {
			return fmt.Errorf("failed to ensure profile: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO attendance_records (owner, calendar_date, total_classes_conducted, classes_attended, attendance_percentage, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (owner, calendar_date) DO UPDATE SET
				total_classes_conducted = excluded.total_classes_conducted,
				classes_attended = excluded.classes_attended,
				attendance_percentage = excluded.attendance_percentage,
				recorded_at = excluded.recorded_at`,
			rec.Owner, rec.Date(), rec.TotalClasses, rec.ClassesAttended, rec.Percentage.Ptr(), rec.RecordedAt.Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("failed to upsert attendance record: %w", err)
		}
		return nil
	})
	if err != nil {
		return attendance.Record{}, err
	}
	return rec, nil
}

func (s *SQLite) Latest(ctx context.Context, owner string) (attendance.Record, error) {
	var (
		rec              attendance.Record
		date, recordedAt string
		pct              sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT owner, calendar_date, total_classes_conducted, classes_attended, attendance_percentage, recorded_at
		FROM attendance_records
		WHERE owner = ?
		ORDER BY calendar_date DESC, recorded_at DESC
		LIMIT 1`, owner,
	).Scan(&rec.Owner, &date, &rec.TotalClasses, &rec.ClassesAttended, &pct, &recordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return attendance.Record{}, ErrNotFound
	}
	if err != nil {
		return attendance.Record{}, fmt.Errorf("failed to query latest record: %w", err)
	}

	if rec.CalendarDate, err = time.Parse(time.DateOnly, date); err != nil {
		return attendance.Record{}, fmt.Errorf("corrupt calendar_date %q: %w", date, err)
	}
	if rec.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
		return attendance.Record{}, fmt.Errorf("corrupt recorded_at %q: %w", recordedAt, err)
	}
	if pct.Valid {
		rec.Percentage = attendance.KnownPercentage(pct.Float64)
	}
	return rec, nil
}

func (s *SQLite) Profile(ctx context.Context, owner string) (attendance.Profile, error) {
	var p attendance.Profile
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO profiles (owner, attendance_goal) VALUES (?, ?)
		ON CONFLICT (owner) DO UPDATE SET attendance_goal = profiles.attendance_goal
		RETURNING owner, attendance_goal`, owner, s.defaultGoal,
	).Scan(&p.Owner, &p.Goal)
	if err != nil {
		return attendance.Profile{}, fmt.Errorf("failed to load profile: %w", err)
	}
	return p, nil
}

func (s *SQLite) SetGoal(ctx context.Context, owner string, goal float64) (attendance.Profile, error) {
	var p attendance.Profile
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO profiles (owner, attendance_goal) VALUES (?, ?)
		ON CONFLICT (owner) DO UPDATE SET attendance_goal = excluded.attendance_goal
		RETURNING owner, attendance_goal`, owner, goal,
	).Scan(&p.Owner, &p.Goal)
	if err != nil {
		return attendance.Profile{}, fmt.Errorf("failed to update goal: %w", err)
	}
	return p, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/sreeshanth-soma/erpScraper/internal/attendance"
)

// DBPool abstracts pgxpool.Pool so tests can use pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS profiles (
    owner           TEXT PRIMARY KEY,
    attendance_goal NUMERIC(5,2) NOT NULL DEFAULT 75.00
);
CREATE TABLE IF NOT EXISTS attendance_records (
    owner                   TEXT NOT NULL REFERENCES profiles(owner),
    calendar_date           DATE NOT NULL,
    total_classes_conducted INTEGER NOT NULL CHECK (total_classes_conducted >= 0),
    classes_attended        INTEGER NOT NULL CHECK (classes_attended >= 0 AND classes_attended <= total_classes_conducted),
    attendance_percentage   NUMERIC(5,2),
    recorded_at             TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (owner, calendar_date)
);`

const (
	pgEnsureProfile = `
        INSERT INTO profiles (owner, attendance_goal)
        VALUES ($1, $2)
        ON CONFLICT (owner) DO NOTHING;`

	pgUpsertRecord = `
        INSERT INTO attendance_records (owner, calendar_date, total_classes_conducted, classes_attended, attendance_percentage, recorded_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (owner, calendar_date) DO UPDATE SET
            total_classes_conducted = EXCLUDED.total_classes_conducted,
            classes_attended = EXCLUDED.classes_attended,
            attendance_percentage = EXCLUDED.attendance_percentage,
            recorded_at = EXCLUDED.recorded_at;`

	pgLatest = `
        SELECT owner, calendar_date, total_classes_conducted, classes_attended, attendance_percentage::float8, recorded_at
        FROM attendance_records
        WHERE owner = $1
        ORDER BY calendar_date DESC, recorded_at DESC
        LIMIT 1;`

	pgProfile = `
        INSERT INTO profiles (owner, attendance_goal)
        VALUES ($1, $2)
        ON CONFLICT (owner) DO UPDATE SET attendance_goal = profiles.attendance_goal
        RETURNING owner, attendance_goal::float8;`

	pgSetGoal = `
        INSERT INTO profiles (owner, attendance_goal)
        VALUES ($1, $2)
        ON CONFLICT (owner) DO UPDATE SET attendance_goal = EXCLUDED.attendance_goal
        RETURNING owner, attendance_goal::float8;`
)

// Store is the PostgreSQL Repository.
type Store struct {
	pool        DBPool
	defaultGoal float64
	log         *zap.Logger
}

var _ Repository = (*Store)(nil)

// New creates a store on pool and verifies the connection.
func New(ctx context.Context, pool DBPool, defaultGoal float64, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool:        pool,
		defaultGoal: defaultGoal,
		log:         logger.Named("store"),
	}, nil
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, pgSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *Store) SaveDaily(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	if err := validateForSave(rec); err != nil {
		return attendance.Record{}, err
	}
	rec.RecordedAt = rec.RecordedAt.UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return attendance.Record{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	if _, err := tx.Exec(ctx, pgEnsureProfile, rec.Owner, s.defaultGoal); err != nil {
		return attendance.Record{}, fmt.Errorf("failed to ensure profile: %w", err)
	}
	if _, err := tx.Exec(ctx, pgUpsertRecord,
		rec.Owner, rec.CalendarDate, rec.TotalClasses, rec.ClassesAttended, rec.Percentage.Ptr(), rec.RecordedAt,
	); err != nil {
		return attendance.Record{}, fmt.Errorf("failed to upsert attendance record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return attendance.Record{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Debug("Attendance record saved.", zap.String("owner", rec.Owner), zap.String("date", rec.Date()))
	return rec, nil
}

func (s *Store) Latest(ctx context.Context, owner string) (attendance.Record, error) {
	var (
		rec attendance.Record
		pct *float64
	)
	err := s.pool.QueryRow(ctx, pgLatest, owner).Scan(
		&rec.Owner, &rec.CalendarDate, &rec.TotalClasses, &rec.ClassesAttended, &pct, &rec.RecordedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return attendance.Record{}, ErrNotFound
	}
	if err != nil {
		return attendance.Record{}, fmt.Errorf("failed to query latest record: %w", err)
	}
	rec.Percentage = attendance.PercentageFromPtr(pct)
	rec.RecordedAt = rec.RecordedAt.UTC()
	return rec, nil
}

func (s *Store) Profile(ctx context.Context, owner string) (attendance.Profile, error) {
	var p attendance.Profile
	if err := s.pool.QueryRow(ctx, pgProfile, owner, s.defaultGoal).Scan(&p.Owner, &p.Goal); err != nil {
		return attendance.Profile{}, fmt.Errorf("failed to load profile: %w", err)
	}
	return p, nil
}

func (s *Store) SetGoal(ctx context.Context, owner string, goal float64) (attendance.Profile, error) {
	var p attendance.Profile
	if err := s.pool.QueryRow(ctx, pgSetGoal, owner, goal).Scan(&p.Owner, &p.Goal); err != nil {
		return attendance.Profile{}, fmt.Errorf("failed to update goal: %w", err)
	}
	return p, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"socially/internal/middleware"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// MigrationStore records which embedded migrations a database has applied.
type MigrationStore interface {
	GetAppliedMigrations(ctx context.Context) ([]int, error)
	ApplyMigration(ctx context.Context, m Migration) error
	RevertMigration(ctx context.Context, m Migration) error
}

// MigrationLog is one row of migration_logs.
type MigrationLog struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (MigrationLog) TableName() string { return "migration_logs" }

const createMigrationLogsSQL = `CREATE TABLE IF NOT EXISTS migration_logs (
	version BIGINT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// undefinedTable is the PostgreSQL SQLSTATE for a missing relation.
const undefinedTable = "42P01"

type gormMigrationStore struct {
	db *gorm.DB
}

// NewMigrationStore returns a MigrationStore backed by the migration_logs table.
func NewMigrationStore(db *gorm.DB) MigrationStore {
	return &gormMigrationStore{db: db}
}

func (s *gormMigrationStore) GetAppliedMigrations(ctx context.Context) ([]int, error) {
	versions := []int{}
	err := s.db.WithContext(ctx).Model(&MigrationLog{}).Order("version ASC").Pluck("version", &versions).Error
	switch {
	case err == nil:
		return versions, nil
	case isMissingTable(err):
		// Nothing has ever been applied.
		return []int{}, nil
	default:
		return nil, fmt.Errorf("read migration_logs: %w", err)
	}
}

func isMissingTable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == undefinedTable
	}
	msg := err.Error()
	return strings.Contains(msg, "no such table") ||
		(strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist"))
}

// ApplyMigration runs the up script and records it in one transaction.
func (s *gormMigrationStore) ApplyMigration(ctx context.Context, m Migration) error {
	return s.inTx(ctx, "apply", m, m.UpScript, func(tx *gorm.DB) error {
		return tx.Create(&MigrationLog{Version: m.Version, Name: m.Name}).Error
	})
}

// RevertMigration runs the down script and forgets the version in one transaction.
func (s *gormMigrationStore) RevertMigration(ctx context.Context, m Migration) error {
	return s.inTx(ctx, "revert", m, m.DownScript, func(tx *gorm.DB) error {
		return tx.Where("version = ?", m.Version).Delete(&MigrationLog{}).Error
	})
}

func (s *gormMigrationStore) inTx(ctx context.Context, action string, m Migration, script string, record func(*gorm.DB) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(script).Error; err != nil {
			return fmt.Errorf("%s %s: %w", action, m.String(), err)
		}
		if err := record(tx); err != nil {
			return fmt.Errorf("%s %s: update migration_logs: %w", action, m.String(), err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	middleware.Logger.InfoContext(ctx, "migration "+action+" done",
		slog.Int("version", m.Version), slog.String("name", m.Name))
	return nil
}

// RunMigrations applies every embedded migration the database has not seen.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).Exec(createMigrationLogsSQL).Error; err != nil {
		return fmt.Errorf("create migration_logs: %w", err)
	}
	return applyPending(ctx, NewMigrationStore(db), migrations)
}

func applyPending(ctx context.Context, store MigrationStore, registered []Migration) error {
	applied, err := store.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}
	if err := validateAppliedVersions(applied, registered); err != nil {
		return err
	}
	for _, m := range registered {
		if slices.Contains(applied, m.Version) {
			continue
		}
		if err := store.ApplyMigration(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// validateAppliedVersions refuses to run against a database that has applied
// migrations this binary does not know, e.g. after a downgrade.
func validateAppliedVersions(applied []int, registered []Migration) error {
	var unknown []string
	for _, v := range slices.Sorted(slices.Values(applied)) {
		if !slices.ContainsFunc(registered, func(m Migration) bool { return m.Version == v }) {
			unknown = append(unknown, fmt.Sprintf("%06d", v))
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("migration_logs contains versions unknown to this build: %s", strings.Join(unknown, ", "))
	}
	return nil
}

// RollbackMigration reverts one applied migration by version.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	return rollback(ctx, NewMigrationStore(db), version)
}

func rollback(ctx context.Context, store MigrationStore, version int) error {
	m := GetMigrationByVersion(version)
	if m == nil {
		return fmt.Errorf("migration version %d not found", version)
	}
	applied, err := store.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(applied, version) {
		return fmt.Errorf("migration %d has not been applied", version)
	}
	return store.RevertMigration(ctx, *m)
}

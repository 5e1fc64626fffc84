package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"accessdesk/internal/middleware"

	"gorm.io/gorm"
)

// migrationLockKey serializes migrators across server replicas on PostgreSQL.
const migrationLockKey int64 = 0x616363657373 // "access"

// MigrationLog records one applied migration.
type MigrationLog struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	AppliedAt time.Time `gorm:"autoCreateTime;index"`
}

func (MigrationLog) TableName() string {
	return "migration_logs"
}

// Ledger applies and reverts migrations and keeps migration_logs in step
// with the schema. Each step runs in a single transaction.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// ensure creates migration_logs if it does not exist yet.
func (l *Ledger) ensure(ctx context.Context) error {
	m := l.db.WithContext(ctx).Migrator()
	if m.HasTable(&MigrationLog{}) {
		return nil
	}
	if err := m.CreateTable(&MigrationLog{}); err != nil {
		return fmt.Errorf("create migration_logs: %w", err)
	}
	return nil
}

// Applied lists recorded versions in ascending order. A database that was
// never migrated has none.
func (l *Ledger) Applied(ctx context.Context) ([]int, error) {
	var versions []int
	err := l.db.WithContext(ctx).Model(&MigrationLog{}).Order("version ASC").Pluck("version", &versions).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || isMissingTableError(err) {
			return []int{}, nil
		}
		return nil, fmt.Errorf("read migration_logs: %w", err)
	}
	return versions, nil
}

func isMissingTableError(err error) bool {
	msg := err.Error()
	return (strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist")) ||
		strings.Contains(msg, "no such table")
}

// Apply runs m's up script and records it. It is a no-op when another
// migrator recorded m first.
func (l *Ledger) Apply(ctx context.Context, m Migration) (bool, error) {
	applied := false
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockMigrations(tx); err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&MigrationLog{}).Where("version = ?", m.Version).Count(&n).Error; err != nil {
			return fmt.Errorf("check migration %s: %w", m.String(), err)
		}
		if n > 0 {
			return nil
		}
		if err := tx.Exec(m.UpScript).Error; err != nil {
			return fmt.Errorf("apply migration %s: %w", m.String(), err)
		}
		if err := tx.Create(&MigrationLog{Version: m.Version, Name: m.Name}).Error; err != nil {
			return fmt.Errorf("record migration %s: %w", m.String(), err)
		}
		applied = true
		return nil
	})
	return applied, err
}

// Revert runs m's down script and forgets it. m must have been applied.
func (l *Ledger) Revert(ctx context.Context, m Migration) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockMigrations(tx); err != nil {
			return err
		}
		res := tx.Where("version = ?", m.Version).Delete(&MigrationLog{})
		if res.Error != nil {
			return fmt.Errorf("forget migration %s: %w", m.String(), res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("migration %d has not been applied", m.Version)
		}
		if err := tx.Exec(m.DownScript).Error; err != nil {
			return fmt.Errorf("revert migration %s: %w", m.String(), err)
		}
		return nil
	})
}

// lockMigrations takes a transaction-scoped advisory lock on PostgreSQL.
// Other dialects rely on the transaction alone.
func lockMigrations(tx *gorm.DB) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", migrationLockKey).Error; err != nil {
		return fmt.Errorf("lock migrations: %w", err)
	}
	return nil
}

// pendingMigrations returns the registered migrations missing from applied.
// Versions recorded in the database but unknown to this build are an error.
func pendingMigrations(applied []int, registered []Migration) ([]Migration, error) {
	known := make(map[int]bool, len(registered))
	for _, m := range registered {
		known[m.Version] = true
	}

	var unknown []string
	for _, v := range applied {
		if !known[v] {
			unknown = append(unknown, fmt.Sprintf("%06d", v))
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("migration_logs contains versions unknown to this build: %s (was it migrated by a newer release?)",
			strings.Join(unknown, ", "))
	}

	var pending []Migration
	for _, m := range registered {
		if !slices.Contains(applied, m.Version) {
			pending = append(pending, m)
		}
	}
	return pending, nil
}

// RunMigrations applies every embedded migration not yet recorded.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	return runMigrations(ctx, NewLedger(db), migrations)
}

func runMigrations(ctx context.Context, l *Ledger, registered []Migration) error {
	if err := l.ensure(ctx); err != nil {
		return err
	}
	applied, err := l.Applied(ctx)
	if err != nil {
		return err
	}
	pending, err := pendingMigrations(applied, registered)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		middleware.Logger.Debug("Schema up to date", slog.Int("applied", len(applied)))
		return nil
	}

	for _, m := range pending {
		ok, err := l.Apply(ctx, m)
		if err != nil {
			return err
		}
		if ok {
			middleware.Logger.Info("Migration applied", slog.String("migration", m.String()))
		}
	}
	return nil
}

// RollbackMigration reverts one applied migration by version.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	m := GetMigrationByVersion(version)
	if m == nil {
		return fmt.Errorf("migration version %d not found", version)
	}
	if err := NewLedger(db).Revert(ctx, *m); err != nil {
		return err
	}
	middleware.Logger.Info("Migration rolled back", slog.String("migration", m.String()))
	return nil
}

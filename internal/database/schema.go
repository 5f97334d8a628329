package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"socially/internal/config"
	"socially/internal/middleware"
	"socially/internal/models"

	"gorm.io/gorm"
)

// Schema modes accepted by DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

var protectedEnvs = []string{"production", "prod", "staging", "stage"}

// SchemaModels lists the GORM models owned by the schema, parents before
// children so foreign keys resolve during AutoMigrate.
func SchemaModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
		&models.Follow{},
		&models.Notification{},
	}
}

// SchemaPlan is what ApplySchema does for a given configuration.
type SchemaPlan struct {
	Mode        string
	Environment string
	RunSQL      bool
	RunAuto     bool
}

// PlanSchema resolves DB_SCHEMA_MODE against the environment. Hybrid runs the
// SQL migrations everywhere and AutoMigrate only in unprotected environments;
// auto in a protected environment needs DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE.
func PlanSchema(cfg *config.Config) (SchemaPlan, error) {
	plan := SchemaPlan{
		Mode:        strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)),
		Environment: cfg.Env,
	}
	if plan.Mode == "" {
		plan.Mode = SchemaModeHybrid
	}
	protected := slices.Contains(protectedEnvs, strings.ToLower(strings.TrimSpace(cfg.Env)))

	switch plan.Mode {
	case SchemaModeSQL:
		plan.RunSQL = true
	case SchemaModeHybrid:
		plan.RunSQL, plan.RunAuto = true, !protected
	case SchemaModeAuto:
		if protected && !cfg.DBAutoMigrateAllowDestructive {
			return plan, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		plan.RunAuto = true
	default:
		return plan, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", plan.Mode)
	}
	return plan, nil
}

// AutoMigrate syncs SchemaModels into db.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(SchemaModels()...)
}

// ApplySchema brings db up to date according to the configured schema mode.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return err
	}

	if plan.RunSQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if !plan.RunAuto {
		return nil
	}

	if cfg.DBAutoMigrateAllowDestructive {
		middleware.Logger.WarnContext(ctx, "AutoMigrate running with destructive changes allowed",
			slog.String("env", cfg.Env))
	}
	middleware.Logger.InfoContext(ctx, "syncing schema models",
		slog.String("mode", plan.Mode), slog.Int("models", len(SchemaModels())))
	if err := AutoMigrate(db.WithContext(ctx)); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// SchemaStatus is a plan plus the migration versions already recorded.
type SchemaStatus struct {
	SchemaPlan
	Applied []int
	Pending []Migration
}

// GetSchemaStatus reports the schema plan and, when SQL migrations are part
// of it, which of them are still pending.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return nil, err
	}
	status := &SchemaStatus{SchemaPlan: plan}
	if !plan.RunSQL {
		return status, nil
	}

	if status.Applied, err = NewMigrationStore(db).GetAppliedMigrations(ctx); err != nil {
		return nil, err
	}
	for _, m := range GetMigrations() {
		if !slices.Contains(status.Applied, m.Version) {
			status.Pending = append(status.Pending, m)
		}
	}
	return status, nil
}

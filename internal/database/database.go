// Package database handles database connections and migrations.
package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"socially/internal/config"
	"socially/internal/middleware"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// DB is the primary (read-write) connection.
	DB *gorm.DB
	// ReadDB is the replica connection, or nil when no replica is configured.
	ReadDB *gorm.DB
)

// CustomGormLogger integrates GORM with slog.
type CustomGormLogger struct {
	logger *slog.Logger
	Config logger.Config
}

// NewGormLogger returns a GORM logger that writes through l at Warn level and
// flags queries slower than 200ms.
func NewGormLogger(l *slog.Logger) *CustomGormLogger {
	return &CustomGormLogger{
		logger: l,
		Config: logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	}
}

// LogMode sets the logging level and returns a new interface instance.
func (l *CustomGormLogger) LogMode(level logger.LogLevel) logger.Interface {
	newlogger := *l
	newlogger.Config.LogLevel = level
	return &newlogger
}

func (l *CustomGormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.Config.LogLevel >= logger.Info {
		l.logger.InfoContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *CustomGormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.Config.LogLevel >= logger.Warn {
		l.logger.WarnContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *CustomGormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.Config.LogLevel >= logger.Error {
		l.logger.ErrorContext(ctx, fmt.Sprintf(msg, data...))
	}
}

// Trace logs SQL statements that failed or ran slower than the threshold.
func (l *CustomGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.Config.LogLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && l.Config.LogLevel >= logger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		l.logger.ErrorContext(ctx, "GORM query error",
			slog.String("sql", sql),
			slog.Int64("rows", rows),
			slog.Duration("elapsed", elapsed),
			slog.String("error", err.Error()),
		)
	case elapsed > l.Config.SlowThreshold && l.Config.SlowThreshold != 0 && l.Config.LogLevel >= logger.Warn:
		l.logger.WarnContext(ctx, "GORM slow query",
			slog.String("sql", sql),
			slog.Int64("rows", rows),
			slog.Duration("elapsed", elapsed),
		)
	case l.Config.LogLevel >= logger.Info:
		l.logger.InfoContext(ctx, "GORM query",
			slog.String("sql", sql),
			slog.Int64("rows", rows),
			slog.Duration("elapsed", elapsed),
		)
	}
}

// ConnectOptions controls what Connect does after opening the pool.
type ConnectOptions struct {
	ApplySchema bool
}

// Connect opens the primary connection and applies the schema.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	return ConnectWithOptions(cfg, ConnectOptions{ApplySchema: true})
}

// ConnectWithOptions opens the primary connection (and the replica when
// DB_READ_HOST is set) using cfg.
func ConnectWithOptions(cfg *config.Config, opts ConnectOptions) (*gorm.DB, error) {
	dbInstance, err := open(primaryDSN(cfg), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	middleware.Logger.Info("Database connected successfully")

	if opts.ApplySchema {
		if err := ApplySchema(context.Background(), dbInstance, cfg); err != nil {
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	if cfg.DBReadHost != "" {
		replica, err := open(readDSN(cfg), cfg)
		if err != nil {
			// Reads fall back to the primary.
			middleware.Logger.Warn("Read replica unavailable", slog.String("error", err.Error()))
		} else {
			ReadDB = replica
			middleware.Logger.Info("Read replica connected", slog.String("host", cfg.DBReadHost))
		}
	}

	DB = dbInstance
	return DB, nil
}

func open(dsn string, cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: NewGormLogger(middleware.Logger),
	})
	if err != nil {
		return nil, err
	}
	if err := configurePool(db, cfg); err != nil {
		return nil, err
	}
	return db, nil
}

func primaryDSN(cfg *config.Config) string {
	return buildDSN(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)
}

func readDSN(cfg *config.Config) string {
	return buildDSN(cfg.DBReadHost, cfg.DBReadPort, cfg.DBReadUser, cfg.DBReadPassword, cfg.DBName, cfg.DBSSLMode)
}

func buildDSN(host, port, user, password, name, sslMode string) string {
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, name, sslMode)
}

func configurePool(db *gorm.DB, cfg *config.Config) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetimeMinutes) * time.Minute)
	return nil
}

// GetReadDB returns the replica connection when one is configured and
// primary otherwise.
func GetReadDB(primary *gorm.DB) *gorm.DB {
	if ReadDB != nil {
		return ReadDB
	}
	return primary
}

// Close releases the primary and replica pools.
func Close() error {
	var errs []error
	for _, db := range []*gorm.DB{DB, ReadDB} {
		if db == nil {
			continue
		}
		sqlDB, err := db.DB()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		errs = append(errs, sqlDB.Close())
	}
	return errors.Join(errs...)
}

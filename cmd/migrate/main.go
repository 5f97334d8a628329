// Command migrate inspects and changes the API database schema.
//
//	migrate up            apply pending SQL migrations
//	migrate auto          sync GORM models (AutoMigrate)
//	migrate status        print the schema plan and pending migrations
//	migrate down <ver>    revert one applied migration
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"socially/internal/bootstrap"
	"socially/internal/config"
	"socially/internal/database"

	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

type command func(ctx context.Context, db *gorm.DB, cfg *config.Config, args []string) error

var commands = map[string]command{
	"up": func(ctx context.Context, db *gorm.DB, _ *config.Config, _ []string) error {
		if err := database.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		log.Println("sql migrations applied")
		return nil
	},
	"auto": func(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return fmt.Errorf("auto schema apply failed: %w", err)
		}
		log.Println("schema models synced")
		return nil
	},
	"status": func(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
		status, err := database.GetSchemaStatus(ctx, db, cfg)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		fmt.Printf("mode=%s env=%s run_sql=%t run_auto=%t applied=%d pending=%d\n",
			status.Mode, status.Environment, status.RunSQL, status.RunAuto,
			len(status.Applied), len(status.Pending))
		for _, m := range status.Pending {
			fmt.Println("pending:", m.String())
		}
		return nil
	},
	"down": func(ctx context.Context, db *gorm.DB, _ *config.Config, args []string) error {
		if len(args) < 1 {
			return fmt.Errorf("down needs a version")
		}
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		if err := database.RollbackMigration(ctx, db, version); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		log.Printf("rolled back migration %06d", version)
		return nil
	},
}

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: migrate <up|auto|status|down> [version]")
	}
	flag.Parse()

	cmd, ok := commands[strings.ToLower(strings.TrimSpace(flag.Arg(0)))]
	if !ok {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(cmd, flag.Args()[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(cmd command, args []string) error {
	_ = godotenv.Load()
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.SeedOnStart = false

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SkipRedis: true})
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close(ctx) }()

	return cmd(ctx, rt.DB, cfg, args)
}

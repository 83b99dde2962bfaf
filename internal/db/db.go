// Package db bootstraps the gorm connection and automigrates the domain
// models, adapted from the teacher's internal/data/db/postgres.go.
package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/relaycore/agentcore/internal/config"
	"github.com/relaycore/agentcore/internal/domain"
	"github.com/relaycore/agentcore/internal/platform/logger"
)

// Open connects to Postgres (production) or sqlite (tests/local dev, per
// cfg.UseSQLite) and automigrates the scheduler's durable entities.
func Open(cfg *config.Config, baseLog *logger.Logger) (*gorm.DB, error) {
	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	var (
		gdb *gorm.DB
		err error
	)
	if cfg.UseSQLite {
		gdb, err = gorm.Open(sqlite.Open(cfg.SQLitePath), &gorm.Config{Logger: gormLog})
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
	} else {
		dsn := fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s?sslmode=disable",
			cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresName,
		)
		gdb, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
			Logger: gormLog,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
			return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
		}
	}

	if err := gdb.AutoMigrate(
		&domain.Job{},
		&domain.JobResult{},
		&domain.JobEvent{},
		&domain.Worker{},
		&domain.ToolTask{},
		&domain.ExecutionLog{},
	); err != nil {
		return nil, fmt.Errorf("failed to automigrate: %w", err)
	}

	baseLog.Info("database ready", "driver", driverName(cfg))
	return gdb, nil
}

func driverName(cfg *config.Config) string {
	if cfg.UseSQLite {
		return "sqlite"
	}
	return "postgres"
}

package database

import (
	"fmt"
	"time"

	"github.com/glefebvre/iptvplayer/internal/config"
	"github.com/glefebvre/iptvplayer/internal/logger"
	"github.com/glefebvre/iptvplayer/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var db *gorm.DB

// Initialize opens the configured store and runs migrations
func Initialize() error {
	cfg := config.Get()

	var err error
	db, err = Open(cfg.Store, logger.NewGormAdapter(logger.StoreLogger(), cfg.GetStoreLogLevel()))
	if err != nil {
		return err
	}
	return nil
}

// Open connects to sqlite or postgres and runs migrations
func Open(cfg config.StoreConfig, gormLogger *logger.GormAdapter) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres store requires a dsn")
		}
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "":
		path := cfg.Path
		if path == "" {
			path = ":memory:"
		}
		dialector = sqlite.Open(path)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}

	gormCfg := &gorm.Config{}
	if gormLogger != nil {
		gormCfg.Logger = gormLogger
	}

	conn, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	if cfg.Driver == "postgres" {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	} else {
		// every sqlite :memory: connection is a separate database
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(conn); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return conn, nil
}

// Migrate creates or updates the store tables
func Migrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&models.AccountRecord{},
		&models.Setting{},
	)
}

// Get returns the database instance
func Get() *gorm.DB {
	return db
}

// HealthCheck verifies database connectivity
func HealthCheck(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}

// Close closes the database connection
func Close(conn *gorm.DB) error {
	if conn == nil {
		return nil
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	return sqlDB.Close()
}

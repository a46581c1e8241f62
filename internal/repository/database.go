package repository

import (
	"errors"
	"fmt"

	"github.com/cinematch/cinematch/internal/config"
	"github.com/cinematch/cinematch/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrDuplicate reports that a unique pair already exists.
	ErrDuplicate = errors.New("record already exists")
	// ErrNotFound reports a missing parent row inside a write.
	ErrNotFound = errors.New("record not found")
	// ErrLimitReached reports that a per-user cap would be exceeded.
	ErrLimitReached = errors.New("limit reached")
)

type Database struct {
	*gorm.DB
}

func NewDatabase(cfg *config.DatabaseConfig) (*Database, error) {
	dsn := cfg.DSN()

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)

	return &Database{db}, nil
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func (db *Database) AutoMigrate() error {
	return db.DB.AutoMigrate(
		&models.User{},
		&models.Genre{},
		&models.Movie{},
		&models.WatchLog{},
		&models.Favorite{},
		&models.WatchlistEntry{},
		&models.Follow{},
		&models.ReviewLike{},
		&models.MovieList{},
		&models.ListItem{},
	)
}

func (db *Database) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

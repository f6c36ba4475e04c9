package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"stockwatch/internal/config"
	"stockwatch/internal/models"
)

// ErrNotFound is returned when a looked-up row does not exist
var ErrNotFound = errors.New("record not found")

// GormDB is the store handle. It is created once at startup and passed to the
// ledgers, the URL store consumers and the analytics layer.
type GormDB struct {
	db    *gorm.DB
	retry retrypolicy.RetryPolicy[any]
	log   zerolog.Logger
}

// NewGormDB opens a connection through dialector and verifies it with a ping
func NewGormDB(dialector gorm.Dialector, cfg config.DatabaseConfig, loc *time.Location, log zerolog.Logger) (*GormDB, error) {
	if loc == nil {
		loc = time.Local
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
		SkipDefaultTransaction: true,
		NowFunc: func() time.Time {
			return time.Now().In(loc)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewGormDBFromDB(db, NewLockRetryPolicy(cfg.LockRetry), log), nil
}

// NewGormDBFromDB wraps an existing gorm.DB instance
func NewGormDBFromDB(db *gorm.DB, retry retrypolicy.RetryPolicy[any], log zerolog.Logger) *GormDB {
	return &GormDB{db: db, retry: retry, log: log}
}

// DB returns the underlying gorm.DB instance
func (gdb *GormDB) DB() *gorm.DB {
	return gdb.db
}

func (gdb *GormDB) Close() error {
	sqlDB, err := gdb.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InitSchema creates tables using GORM AutoMigrate
func (gdb *GormDB) InitSchema(ctx context.Context) error {
	return gdb.db.WithContext(ctx).AutoMigrate(
		&models.Product{},
		&models.Country{},
		&models.Brand{},
		&models.URLRecord{},
		&models.ProductURL{},
		&models.StatusObservation{},
		&models.PriceObservation{},
	)
}

// InTx runs fn in its own transaction. The transaction commits when fn returns
// nil and rolls back otherwise; lock wait timeouts retry the whole unit.
func (gdb *GormDB) InTx(ctx context.Context, fn func(LedgerTx) error) error {
	return Retry(ctx, gdb.retry, func() error {
		return gdb.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(&gormTx{tx: tx})
		})
	})
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info", "debug":
		return logger.Info
	default:
		return logger.Warn
	}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

package postgres

import (
	"database/sql"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"settlement-core.backend/internal/config"
	"settlement-core.backend/internal/infrastructure/models"
)

var (
	dialector = func(dsn string) gorm.Dialector {
		return postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		})
	}
	dbPing = func(db *sql.DB) error { return db.Ping() }
)

// NewConnection opens the settlement database. TranslateError is on so unique
// violations surface as gorm.ErrDuplicatedKey.
func NewConnection(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(dialector(cfg.URL()), &gorm.Config{
		PrepareStmt:    false,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := dbPing(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the tables this service owns. Read models
// belong to other services and are never migrated here.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.Owned()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

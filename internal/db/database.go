package db

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shield-backend/internal/metrics"
	"shield-backend/internal/models"
)

var DB *gorm.DB

// InitDB opens postgres at dsn and migrates the transfer checkpoint table.
func InitDB(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
		PrepareStmt:                              true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		metrics.DBConnectionStatus.Set(0)
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	metrics.DBConnectionStatus.Set(1)
	log.Println("✅ Database connected successfully")

	start := time.Now()
	if err := conn.AutoMigrate(&models.TransferRecord{}); err != nil {
		return nil, fmt.Errorf("AutoMigrate failed: %w", err)
	}
	if err := ensureRecoverableIndex(conn); err != nil {
		log.Printf("⚠️ Failed to create recoverable transfer index: %v", err)
	}
	metrics.DBQueryDuration.WithLabelValues("migrate").Observe(time.Since(start).Seconds())

	log.Println("✅ Database schema migrated successfully")
	DB = conn
	return conn, nil
}

// ensureRecoverableIndex adds a partial index for the resume query.
// AutoMigrate cannot express partial indexes.
func ensureRecoverableIndex(db *gorm.DB) error {
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_shielded_transfers_recoverable
		ON shielded_transfers (created_at)
		WHERE deposit_signature <> '' AND (withdraw_signature IS NULL OR withdraw_signature = '')
	`).Error
}

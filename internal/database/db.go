package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"procurement/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM.
// Driver errors are translated so unique violations surface as gorm.ErrDuplicatedKey.
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// Models lists every table owned by the service, in dependency order
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.AuditLog{},
		&model.TaxRule{},
		&model.Vendor{},
		&model.ProductCategory{},
		&model.Product{},
		&model.BOM{},
		&model.BOMItem{},
		&model.RFxEvent{},
		&model.RFxInvitation{},
		&model.RFxResponse{},
		&model.Auction{},
		&model.AuctionParticipant{},
		&model.Bid{},
		&model.DirectOrder{},
		&model.DirectOrderItem{},
		&model.PurchaseOrder{},
		&model.POLineItem{},
		&model.ApprovalRecord{},
		&model.Notification{},
	}
}

// Migrate runs AutoMigrate for all models
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	log.Println("Database schema migrated")
	return nil
}

// HealthCheck pings the pool with a bounded deadline
func HealthCheck(ctx context.Context, sqlDB *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}

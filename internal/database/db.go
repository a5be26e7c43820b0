package database

import (
	"tokopos-backend/internal/config"
	"tokopos-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Tables lists every model in migration order.
var Tables = []interface{}{
	&models.User{},
	&models.Category{},
	&models.Product{},
	&models.Transaction{},
	&models.TransactionItem{},
	&models.InventoryLog{},
	&models.Notification{},
}

func Init(cfg *config.Config) {
	var err error

	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		zap.S().Fatalf("database connection failed: %v", err)
	}

	if err := DB.AutoMigrate(Tables...); err != nil {
		zap.S().Fatalf("migration failed: %v", err)
	}

	zap.S().Info("database connected, migration complete")
}

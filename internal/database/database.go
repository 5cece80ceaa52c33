package database

import (
	"github.com/ayoubladame458-sys/bias-detector-ai/internal/config"
	"github.com/ayoubladame458-sys/bias-detector-ai/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect(cfg *config.Config) (*gorm.DB, error) {
	logLevel := logger.Warn
	if cfg.IsDevelopment() {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}

	return db, nil
}

// AutoMigrate creates the history tables. The document_chunks table is NOT
// migrated here: its vector column dimension is inferred from the first
// embedding batch, so the chunk repository creates it lazily.
func AutoMigrate(db *gorm.DB) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return err
	}

	return db.AutoMigrate(
		&model.Document{},
		&model.Analysis{},
	)
}

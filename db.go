package main

import (
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// OpenDB connects to postgres when a DSN is configured, otherwise falls
// back to a local sqlite file (dev and tests).
func OpenDB(cfg *Config) (*gorm.DB, error) {
	if cfg.DatabaseURL != "" {
		return gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	}
	return gorm.Open(sqlite.Open(cfg.SQLitePath), &gorm.Config{})
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Student{},
		&Quiz{},
		&Question{},
		&Option{},
		&Attempt{},
		&AttemptAnswer{},
	)
}

func IsQuizTableEmpty(db *gorm.DB) (bool, error) {
	var count int64
	if err := db.Model(&Quiz{}).Count(&count).Error; err != nil {
		return false, err
	}
	return count == 0, nil
}

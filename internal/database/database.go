package database

import (
	"fmt"
	"log"

	"github.com/stevengranter/wilderquest-sub001/internal/config"
	"github.com/stevengranter/wilderquest-sub001/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg *config.Config) *gorm.DB {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	log.Println("database connected")
	return db
}

func AutoMigrate(db *gorm.DB) {
	if err := Migrate(db); err != nil {
		log.Fatalf("failed to auto-migrate: %v", err)
	}
	log.Println("database migrated")
}

// Migrate creates the schema plus the partial index AutoMigrate can't
// express: at most one primary share per (quest, owner), which backs
// the lazy create-or-fetch of the owner's acting-identity share.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Quest{},
		&models.TaxonMapping{},
		&models.Share{},
		&models.ProgressEntry{},
	)
	if err != nil {
		return err
	}

	return db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_primary_share_per_owner
		 ON shares (quest_id, created_by_user_id) WHERE is_primary AND deleted_at IS NULL`,
	).Error
}

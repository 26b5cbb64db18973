package database

import (
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/adgenix/adgenix-backend/internal/models"
)

func NewDatabase() *gorm.DB {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := RunMigrations(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	return db
}

func RunMigrations(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.TokenPackage{},
		&models.Transaction{},
		&models.UserTokenAccount{},
	)
	if err != nil {
		return err
	}

	return seedTokenPackages(db)
}

// seedTokenPackages inserts the static catalog on first boot. Existing rows
// are left untouched; the catalog is immutable at runtime.
func seedTokenPackages(db *gorm.DB) error {
	packages := []models.TokenPackage{
		{
			Name:        "Pioneer",
			Description: "100K tokens, enough for a first campaign",
			Tokens:      100000,
			PriceIDR:    150000,
			Tier:        models.TierPioneer,
			IsActive:    true,
		},
		{
			Name:            "Voyager",
			Description:     "250K tokens for regular advertisers",
			Tokens:          250000,
			PriceIDR:        350000,
			Tier:            models.TierVoyager,
			DiscountPercent: 5,
			IsActive:        true,
		},
		{
			Name:            "Dominator",
			Description:     "600K tokens for agencies",
			Tokens:          600000,
			PriceIDR:        750000,
			Tier:            models.TierDominator,
			DiscountPercent: 10,
			IsActive:        true,
		},
		{
			Name:            "Overlord",
			Description:     "1.5M tokens, priority support",
			Tokens:          1500000,
			PriceIDR:        1550000,
			Tier:            models.TierOverlord,
			DiscountPercent: 15,
			IsActive:        true,
		},
	}

	for _, pkg := range packages {
		var count int64
		db.Model(&models.TokenPackage{}).Where("name = ?", pkg.Name).Count(&count)
		if count == 0 {
			if err := db.Create(&pkg).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

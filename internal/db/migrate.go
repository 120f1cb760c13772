package db

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/zulandar/sightline/internal/config"
	"github.com/zulandar/sightline/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.RequestRecord{},
		&models.Model{},
		&models.Provider{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedRegistry upserts Provider and Model rows from configuration. Providers
// are written first so every seeded model resolves to a provider row.
func SeedRegistry(db *gorm.DB, cfg *config.Config) error {
	for _, pc := range cfg.Providers {
		p := models.Provider{
			ID:          pc.ID,
			Type:        pc.Type,
			BaseURL:     pc.BaseURL,
			APIKey:      pc.APIKey(),
			MaxAttempts: pc.MaxAttempts,
			Active:      true,
		}
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"type", "base_url", "api_key", "max_attempts", "active", "updated_at"}),
		}).Create(&p)
		if result.Error != nil {
			return fmt.Errorf("db: seed provider %q: %w", pc.ID, result.Error)
		}
	}

	for _, mc := range cfg.Models {
		m := models.Model{
			ID:                    mc.ID,
			ProviderID:            mc.Provider,
			InputPricePerMillion:  decimal.NewFromFloat(mc.InputPricePerMillion),
			OutputPricePerMillion: decimal.NewFromFloat(mc.OutputPricePerMillion),
			Active:                mc.IsActive(),
		}
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"provider_id", "input_price_per_million", "output_price_per_million", "active", "updated_at"}),
		}).Create(&m)
		if result.Error != nil {
			return fmt.Errorf("db: seed model %q: %w", mc.ID, result.Error)
		}
	}
	return nil
}

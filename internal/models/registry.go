package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Model is the pricing entry for a model identifier.
type Model struct {
	ID                    string  `gorm:"primaryKey;size:128"`
	ProviderID            string  `gorm:"size:64;not null;index"`
	InputPricePerMillion  decimal.Decimal `gorm:"type:decimal(20,10);not null;default:0"`
	OutputPricePerMillion decimal.Decimal `gorm:"type:decimal(20,10);not null;default:0"`
	Active                bool            `gorm:"index"`
	UpdatedAt             time.Time
}

// Provider holds connection details for an OpenAI-compatible upstream.
type Provider struct {
	ID          string `gorm:"primaryKey;size:64"`
	Type        string `gorm:"size:32;default:openai"`
	BaseURL     string `gorm:"size:512;not null"`
	APIKey      string `gorm:"size:512"`
	MaxAttempts int    `gorm:"default:1"`
	Active      bool   `gorm:"index"`
	UpdatedAt   time.Time
}

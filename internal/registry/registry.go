// Package registry resolves models and providers from the pricing registry.
//
// Models and providers are looked up separately so a caller can tell which
// of the two was missing or inactive.
package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/zulandar/sightline/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrModelNotFound is returned when no active model has the identifier.
	ErrModelNotFound = errors.New("registry: model not found or inactive")
	// ErrProviderNotFound is returned when no active provider has the id.
	ErrProviderNotFound = errors.New("registry: provider not found or inactive")
)

// Registry is the GORM-backed model/provider registry.
type Registry struct {
	db *gorm.DB
}

// New returns a registry backed by db.
func New(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// Model returns the active pricing entry for a model identifier.
func (r *Registry) Model(ctx context.Context, id string) (*models.Model, error) {
	var m models.Model
	err := r.db.WithContext(ctx).Where("id = ? AND active = ?", id, true).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, id)
		}
		return nil, fmt.Errorf("registry: get model %s: %w", id, err)
	}
	return &m, nil
}

// Provider returns the active provider with the given id.
func (r *Registry) Provider(ctx context.Context, id string) (*models.Provider, error) {
	var p models.Provider
	err := r.db.WithContext(ctx).Where("id = ? AND active = ?", id, true).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, id)
		}
		return nil, fmt.Errorf("registry: get provider %s: %w", id, err)
	}
	return &p, nil
}

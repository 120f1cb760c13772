// Package store provides the append-only request record store.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/zulandar/sightline/internal/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned when no record matches the id within the given
// environment scope.
var ErrNotFound = errors.New("store: request not found")

// ListFilters holds optional filters for listing request records.
type ListFilters struct {
	EnvironmentID  string
	Model          string
	Status         string
	ExcludeReplays bool
	Limit          int
}

// Requests is the GORM-backed request record store.
type Requests struct {
	db *gorm.DB
}

// New returns a store backed by db.
func New(db *gorm.DB) *Requests {
	return &Requests{db: db}
}

// Get retrieves a record by internal id, scoped to an environment.
func (s *Requests) Get(ctx context.Context, id uint, environmentID string) (*models.RequestRecord, error) {
	var rec models.RequestRecord
	err := s.db.WithContext(ctx).
		Where("id = ? AND environment_id = ?", id, environmentID).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d in environment %q", ErrNotFound, id, environmentID)
		}
		return nil, fmt.Errorf("store: get %d: %w", id, err)
	}
	return &rec, nil
}

// Append inserts a new record. Existing rows are never updated, so a record
// that already carries an id is rejected.
func (s *Requests) Append(ctx context.Context, rec *models.RequestRecord) error {
	if rec.ID != 0 {
		return fmt.Errorf("store: append: record already persisted as %d", rec.ID)
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("store: append: %w", err)
	}
	return nil
}

// List returns records matching the filters, newest first.
func (s *Requests) List(ctx context.Context, filters ListFilters) ([]models.RequestRecord, error) {
	q := s.db.WithContext(ctx).Model(&models.RequestRecord{})

	if filters.EnvironmentID != "" {
		q = q.Where("environment_id = ?", filters.EnvironmentID)
	}
	if filters.Model != "" {
		q = q.Where("model = ?", filters.Model)
	}
	if filters.Status != "" {
		q = q.Where("status = ?", filters.Status)
	}
	if filters.ExcludeReplays {
		q = q.Where("replay_of_id IS NULL")
	}
	if filters.Limit > 0 {
		q = q.Limit(filters.Limit)
	}

	var recs []models.RequestRecord
	if err := q.Order("id DESC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	return recs, nil
}

// ListReplays returns every replay of the given original within the
// environment, oldest first.
func (s *Requests) ListReplays(ctx context.Context, originalID uint, environmentID string) ([]models.RequestRecord, error) {
	var recs []models.RequestRecord
	err := s.db.WithContext(ctx).
		Where("replay_of_id = ? AND environment_id = ?", originalID, environmentID).
		Order("id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("store: list replays of %d: %w", originalID, err)
	}
	return recs, nil
}

package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"portfolio/internal/domain"
	"portfolio/internal/metrics"
)

// ContactRepository persists contact submissions. Create either commits the
// whole row and fills in ID, ReferenceID and SubmittedAt, or returns an error
// and leaves nothing behind.
type ContactRepository interface {
	Create(ctx context.Context, sub *domain.ContactSubmission) error
}

// GormContactRepository is the gorm implementation of ContactRepository
type GormContactRepository struct {
	db *gorm.DB
}

// NewGormContactRepository creates a repository backed by db
func NewGormContactRepository(db *gorm.DB) *GormContactRepository {
	return &GormContactRepository{db: db}
}

var _ ContactRepository = (*GormContactRepository)(nil)

// Create inserts one row; the model hooks assign ReferenceID and SubmittedAt.
func (r *GormContactRepository) Create(ctx context.Context, sub *domain.ContactSubmission) error {
	start := time.Now()
	err := r.db.WithContext(ctx).Create(sub).Error
	metrics.RecordDBQuery("contact_create", time.Since(start), err)
	return err
}

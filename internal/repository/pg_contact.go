package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"portfolio/internal/domain"
	"portfolio/internal/metrics"
)

const createContactTable = `CREATE TABLE IF NOT EXISTS contact_submissions (
	id           BIGSERIAL PRIMARY KEY,
	reference_id VARCHAR(36) NOT NULL UNIQUE,
	name         TEXT NOT NULL,
	email        TEXT NOT NULL,
	subject      TEXT NOT NULL,
	message      TEXT NOT NULL,
	submitted_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const createContactEmailIndex = `CREATE INDEX IF NOT EXISTS idx_contact_submissions_email ON contact_submissions (email)`

// PgContactRepository is the pgx implementation of ContactRepository
type PgContactRepository struct {
	pool *pgxpool.Pool
}

// NewPgContactRepository creates a PgContactRepository backed by the given pool.
func NewPgContactRepository(pool *pgxpool.Pool) *PgContactRepository {
	return &PgContactRepository{pool: pool}
}

var _ ContactRepository = (*PgContactRepository)(nil)

// Migrate creates the contact_submissions table if it does not exist
func (r *PgContactRepository) Migrate(ctx context.Context) error {
	for _, stmt := range []string{createContactTable, createContactEmailIndex} {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate contact_submissions: %w", err)
		}
	}
	return nil
}

// Create inserts a row and populates ID and SubmittedAt from the RETURNING clause.
func (r *PgContactRepository) Create(ctx context.Context, sub *domain.ContactSubmission) error {
	start := time.Now()
	sub.AssignIdentity(start)

	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO contact_submissions (reference_id, name, email, subject, message, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, submitted_at`,
		sub.ReferenceID, sub.Name, sub.Email, sub.Subject, sub.Message, sub.SubmittedAt,
	).Scan(&id, &sub.SubmittedAt)
	metrics.RecordDBQuery("contact_create", time.Since(start), err)
	if err != nil {
		return err
	}
	sub.ID = uint(id)
	return nil
}

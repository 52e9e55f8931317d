package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrImmutable is returned when something tries to change a stored submission
var ErrImmutable = errors.New("contact submissions are immutable")

// ContactSubmission represents a contact form submission.
// ID, ReferenceID and SubmittedAt are assigned on insert, never by callers.
type ContactSubmission struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ReferenceID string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"reference_id"`
	Name        string    `gorm:"not null" json:"name"`
	Email       string    `gorm:"not null;index" json:"email"`
	Subject     string    `gorm:"not null" json:"subject"`
	Message     string    `gorm:"type:text;not null" json:"message"`
	SubmittedAt time.Time `gorm:"not null;index" json:"submitted_at"`
}

// TableName specifies the table name for ContactSubmission
func (ContactSubmission) TableName() string {
	return "contact_submissions"
}

// AssignIdentity stamps the store-owned fields that are not generated by the
// database itself.
func (c *ContactSubmission) AssignIdentity(now time.Time) {
	c.ReferenceID = uuid.NewString()
	c.SubmittedAt = now.UTC()
}

// BeforeCreate hook
func (c *ContactSubmission) BeforeCreate(tx *gorm.DB) error {
	c.ID = 0
	c.AssignIdentity(tx.NowFunc())
	return nil
}

// BeforeUpdate hook
func (c *ContactSubmission) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutable
}

// BeforeDelete hook
func (c *ContactSubmission) BeforeDelete(tx *gorm.DB) error {
	return ErrImmutable
}

package contract

import (
	"time"

	"github.com/google/uuid"
)

// Contract maps to the contract table. Every treatment starts with exactly
// one unsigned contract; the treatment stays inert until it is signed, and is
// cancelled by the deadline sweep if the deadline lapses first.
type Contract struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	TreatmentID uuid.UUID  `db:"treatment_id" json:"treatment_id"`
	FileURL     *string    `db:"file_url" json:"file_url,omitempty"`
	Deadline    time.Time  `db:"deadline" json:"deadline"`
	SignedAt    *time.Time `db:"signed_at" json:"signed_at,omitempty"`
	SignedBy    *string    `db:"signed_by" json:"signed_by,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Signed reports whether the contract has been signed.
func (c *Contract) Signed() bool { return c.SignedAt != nil }

package contract

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, c *Contract) error
	GetByID(ctx context.Context, id uuid.UUID) (*Contract, error)
	GetByTreatment(ctx context.Context, treatmentID uuid.UUID) (*Contract, error)
	List(ctx context.Context, signed *bool, limit, offset int) ([]*Contract, int, error)
	MarkSigned(ctx context.Context, id uuid.UUID, signedAt time.Time, signedBy string) error
	ListUnsignedPastDeadline(ctx context.Context, now time.Time) ([]*Contract, error)
}

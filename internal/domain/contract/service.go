package contract

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ferticare/portal/internal/domain/workflow"
)

// TreatmentActivator moves a treatment out of its awaiting-contract state
// once its contract is signed. Implemented by the treatment service and
// injected at wiring time.
type TreatmentActivator interface {
	Activate(ctx context.Context, treatmentID uuid.UUID) error
}

// Transactor runs fn atomically; repository calls made with the context it
// supplies join the same transaction.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	contracts Repository
	tx        Transactor
	activator TreatmentActivator
	now       func() time.Time
}

func NewService(contracts Repository, tx Transactor) *Service {
	return &Service{contracts: contracts, tx: tx, now: time.Now}
}

// SetActivator attaches the treatment activator. Must be called before Sign
// is served.
func (s *Service) SetActivator(a TreatmentActivator) { s.activator = a }

// SetClock overrides the service clock, for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Create opens an unsigned contract for a treatment with the given signing
// deadline. Called by the treatment service inside treatment creation.
func (s *Service) Create(ctx context.Context, treatmentID uuid.UUID, deadline time.Time, fileURL *string) (*Contract, error) {
	if treatmentID == uuid.Nil {
		return nil, fmt.Errorf("treatment_id is required")
	}
	c := &Contract{TreatmentID: treatmentID, Deadline: deadline, FileURL: fileURL}
	if err := s.contracts.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Contract, error) {
	return s.contracts.GetByID(ctx, id)
}

func (s *Service) GetByTreatment(ctx context.Context, treatmentID uuid.UUID) (*Contract, error) {
	return s.contracts.GetByTreatment(ctx, treatmentID)
}

// List returns contracts, optionally filtered on whether they are signed.
func (s *Service) List(ctx context.Context, signed *bool, limit, offset int) ([]*Contract, int, error) {
	return s.contracts.List(ctx, signed, limit, offset)
}

// Sign records the signature and activates the owning treatment, in one
// transaction: a failed activation leaves the contract unsigned. Re-signing
// and signing past the deadline both fail with state errors; the lapsed
// contract's treatment is left for the deadline sweep to cancel.
func (s *Service) Sign(ctx context.Context, id uuid.UUID, signedBy string) (*Contract, error) {
	var c *Contract
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		c, err = s.contracts.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if c.Signed() {
			return workflow.ErrInvalidStateTransition
		}
		now := s.now()
		if workflow.PastDeadline(c.Deadline, now) {
			return fmt.Errorf("signing window closed: %w", workflow.ErrInvalidState)
		}
		if err := s.contracts.MarkSigned(ctx, id, now, signedBy); err != nil {
			return err
		}
		if err := s.activator.Activate(ctx, c.TreatmentID); err != nil {
			return err
		}
		c.SignedAt = &now
		c.SignedBy = &signedBy
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListUnsignedPastDeadline returns contracts the deadline sweep must act on.
func (s *Service) ListUnsignedPastDeadline(ctx context.Context, now time.Time) ([]*Contract, error) {
	return s.contracts.ListUnsignedPastDeadline(ctx, now)
}

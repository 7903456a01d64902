package assigndrug

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ferticare/portal/internal/domain/workflow"
)

// TreatmentSource reports the state of a treatment so prescriptions are only
// issued against active ones. Implemented by the treatment service.
type TreatmentSource interface {
	TreatmentState(ctx context.Context, id uuid.UUID) (workflow.TreatmentStatus, error)
}

type Service struct {
	bundles    Repository
	treatments TreatmentSource
}

func NewService(bundles Repository) *Service {
	return &Service{bundles: bundles}
}

// SetTreatmentSource attaches the treatment state source. Must be called
// before Create is served.
func (s *Service) SetTreatmentSource(ts TreatmentSource) { s.treatments = ts }

// Create issues a prescription bundle for a phase of an active treatment. A
// drug may appear at most once per bundle.
func (s *Service) Create(ctx context.Context, a *AssignDrug) error {
	if a.TreatmentID == uuid.Nil {
		return fmt.Errorf("treatment_id is required")
	}
	if a.PhaseID == uuid.Nil {
		return fmt.Errorf("phase_id is required")
	}
	if len(a.Items) == 0 {
		return fmt.Errorf("a prescription requires at least one drug")
	}
	seen := make(map[uuid.UUID]bool, len(a.Items))
	for _, item := range a.Items {
		if item.DrugID == uuid.Nil {
			return fmt.Errorf("drug_id is required on every item")
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("quantity must be positive")
		}
		if seen[item.DrugID] {
			return fmt.Errorf("drug %s: %w", item.DrugID, workflow.ErrDuplicateAssignment)
		}
		seen[item.DrugID] = true
	}

	state, err := s.treatments.TreatmentState(ctx, a.TreatmentID)
	if err != nil {
		return err
	}
	if state != workflow.TreatmentInProgress {
		return fmt.Errorf("treatment is %s: %w", state, workflow.ErrInvalidState)
	}

	a.Status = workflow.AssignDrugPending
	return s.bundles.Create(ctx, a)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*AssignDrug, error) {
	return s.bundles.GetByID(ctx, id)
}

func (s *Service) ListByTreatment(ctx context.Context, treatmentID uuid.UUID) ([]*AssignDrug, error) {
	return s.bundles.ListByTreatment(ctx, treatmentID)
}

// List returns prescription bundles filtered by status; an empty status
// matches all.
func (s *Service) List(ctx context.Context, status workflow.AssignDrugStatus, limit, offset int) ([]*AssignDrug, int, error) {
	if status != "" && !status.Valid() {
		return nil, 0, fmt.Errorf("unknown assign-drug status %q", status)
	}
	return s.bundles.ListByStatus(ctx, status, limit, offset)
}

// MarkTaken records that the patient collected the bundle.
func (s *Service) MarkTaken(ctx context.Context, id uuid.UUID) (*AssignDrug, error) {
	if err := s.bundles.UpdateStatus(ctx, id, workflow.AssignDrugPending, workflow.AssignDrugCompleted); err != nil {
		return nil, err
	}
	return s.bundles.GetByID(ctx, id)
}

// Cancel withdraws a pending prescription.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*AssignDrug, error) {
	if err := s.bundles.UpdateStatus(ctx, id, workflow.AssignDrugPending, workflow.AssignDrugCancelled); err != nil {
		return nil, err
	}
	return s.bundles.GetByID(ctx, id)
}

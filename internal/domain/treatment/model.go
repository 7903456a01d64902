package treatment

import (
	"time"

	"github.com/google/uuid"

	"github.com/ferticare/portal/internal/domain/workflow"
)

// ItemKind distinguishes the two catalog item families a protocol phase
// bundles.
type ItemKind string

const (
	ItemService ItemKind = "SERVICE"
	ItemDrug    ItemKind = "DRUG"
)

// PhaseItem is one catalog item owned by a phase. AssignedTo points at the
// schedule (services) or prescription bundle (drugs) the item is attached
// to; nil means the item sits in the unset pool.
type PhaseItem struct {
	PhaseID    uuid.UUID  `db:"phase_id" json:"phase_id"`
	ItemID     uuid.UUID  `db:"item_id" json:"item_id"`
	Kind       ItemKind   `db:"kind" json:"kind"`
	AssignedTo *uuid.UUID `db:"assigned_to" json:"assigned_to,omitempty"`
}

// Assigned reports whether the item has left the unset pool.
func (it *PhaseItem) Assigned() bool { return it.AssignedTo != nil }

// Phase maps to the treatment_phase table: one ordered stage of a protocol
// with its service/drug catalog.
type Phase struct {
	ID          uuid.UUID    `db:"id" json:"id"`
	TreatmentID uuid.UUID    `db:"treatment_id" json:"treatment_id"`
	Title       string       `db:"title" json:"title"`
	Description string       `db:"description" json:"description"`
	Position    int          `db:"position" json:"position"`
	Items       []*PhaseItem `json:"items"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

// Treatment maps to the treatment table. Phases are ordered by position,
// contiguous from 1.
type Treatment struct {
	ID             uuid.UUID                `db:"id" json:"id"`
	Title          string                   `db:"title" json:"title"`
	Description    string                   `db:"description" json:"description"`
	PatientID      uuid.UUID                `db:"patient_id" json:"patient_id"`
	DoctorID       uuid.UUID                `db:"doctor_id" json:"doctor_id"`
	PaymentMode    workflow.PaymentMode     `db:"payment_mode" json:"payment_mode"`
	Status         workflow.TreatmentStatus `db:"status" json:"status"`
	CurrentPhaseID *uuid.UUID               `db:"current_phase_id" json:"current_phase_id,omitempty"`
	StartDate      time.Time                `db:"start_date" json:"start_date"`
	EndDate        *time.Time               `db:"end_date" json:"end_date,omitempty"`
	Phases         []*Phase                 `json:"phases"`
	CreatedAt      time.Time                `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time                `db:"updated_at" json:"updated_at"`
}

// CurrentPhase resolves the current phase pointer, or nil.
func (t *Treatment) CurrentPhase() *Phase {
	if t.CurrentPhaseID == nil {
		return nil
	}
	for _, p := range t.Phases {
		if p.ID == *t.CurrentPhaseID {
			return p
		}
	}
	return nil
}

// NextPhase returns the phase following the current one in position order,
// or nil when the current phase is the last.
func (t *Treatment) NextPhase() *Phase {
	cur := t.CurrentPhase()
	if cur == nil {
		return nil
	}
	for _, p := range t.Phases {
		if p.Position == cur.Position+1 {
			return p
		}
	}
	return nil
}

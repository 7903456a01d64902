package assigndrug

import (
	"time"

	"github.com/google/uuid"

	"github.com/ferticare/portal/internal/domain/workflow"
)

// AssignDrug maps to the assign_drug table: a prescription bundle issued for
// a treatment phase. The bundle stays PENDING until the patient collects it
// (COMPLETED) or the prescription is withdrawn (CANCELLED).
type AssignDrug struct {
	ID          uuid.UUID                 `db:"id" json:"id"`
	TreatmentID uuid.UUID                 `db:"treatment_id" json:"treatment_id"`
	PhaseID     uuid.UUID                 `db:"phase_id" json:"phase_id"`
	DoctorID    uuid.UUID                 `db:"doctor_id" json:"doctor_id"`
	Status      workflow.AssignDrugStatus `db:"status" json:"status"`
	Note        *string                   `db:"note" json:"note,omitempty"`
	CreatedAt   time.Time                 `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time                 `db:"updated_at" json:"updated_at"`

	Items []*Item `db:"-" json:"items,omitempty"`
}

// Item maps to the assign_drug_item table. A bundle lists each drug at most
// once.
type Item struct {
	ID           uuid.UUID `db:"id" json:"id"`
	AssignDrugID uuid.UUID `db:"assign_drug_id" json:"assign_drug_id"`
	DrugID       uuid.UUID `db:"drug_id" json:"drug_id"`
	Quantity     int       `db:"quantity" json:"quantity"`
	Dosage       *string   `db:"dosage" json:"dosage,omitempty"`
}

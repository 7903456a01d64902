package schedule

import (
	"time"

	"github.com/google/uuid"

	"github.com/ferticare/portal/internal/domain/workflow"
)

// Schedule maps to the schedule table: one bookable appointment slot owned
// by a treatment phase. The attached services live in schedule_service.
type Schedule struct {
	ID           uuid.UUID               `db:"id" json:"id"`
	PhaseID      uuid.UUID               `db:"phase_id" json:"phase_id"`
	TreatmentID  uuid.UUID               `db:"treatment_id" json:"treatment_id"`
	DoctorID     uuid.UUID               `db:"doctor_id" json:"doctor_id"`
	PatientID    uuid.UUID               `db:"patient_id" json:"patient_id"`
	Title        string                  `db:"title" json:"title"`
	StartTime    time.Time               `db:"start_time" json:"start_time"`
	EstimatedEnd time.Time               `db:"estimated_end" json:"estimated_end"`
	Status       workflow.ScheduleStatus `db:"status" json:"status"`
	ServiceIDs   []uuid.UUID             `json:"service_ids"`
	CreatedAt    time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time               `db:"updated_at" json:"updated_at"`
}

// Interval returns the half-open appointment window [StartTime, EstimatedEnd).
func (s *Schedule) Interval() workflow.Interval {
	return workflow.Interval{Start: s.StartTime, End: s.EstimatedEnd}
}

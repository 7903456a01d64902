package payment

import (
	"time"

	"github.com/google/uuid"

	"github.com/ferticare/portal/internal/domain/workflow"
)

// Payment maps to the payment table. A treatment paid up front carries one
// payment with no schedule; a treatment paid per phase carries one payment
// per billed appointment. An appointment cannot be marked done while a
// payment linked to it is still PENDING.
type Payment struct {
	ID          uuid.UUID              `db:"id" json:"id"`
	TreatmentID uuid.UUID              `db:"treatment_id" json:"treatment_id"`
	ScheduleID  *uuid.UUID             `db:"schedule_id" json:"schedule_id,omitempty"`
	Amount      int64                  `db:"amount" json:"amount"`
	Status      workflow.PaymentStatus `db:"status" json:"status"`
	Deadline    *time.Time             `db:"deadline" json:"deadline,omitempty"`
	PaidAt      *time.Time             `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt   time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time              `db:"updated_at" json:"updated_at"`
}

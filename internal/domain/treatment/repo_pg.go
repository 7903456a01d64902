package treatment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ferticare/portal/internal/domain/workflow"
	"github.com/ferticare/portal/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const cols = `id, title, description, patient_id, doctor_id, payment_mode, status, current_phase_id, start_date, end_date, created_at, updated_at`

func (r *repoPG) scan(row pgx.Row) (*Treatment, error) {
	var t Treatment
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.PatientID, &t.DoctorID,
		&t.PaymentMode, &t.Status, &t.CurrentPhaseID, &t.StartDate, &t.EndDate,
		&t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, workflow.ErrNotFound
	}
	return &t, err
}

const phaseCols = `id, treatment_id, title, description, position, created_at, updated_at`

func (r *repoPG) scanPhase(row pgx.Row) (*Phase, error) {
	var p Phase
	err := row.Scan(&p.ID, &p.TreatmentID, &p.Title, &p.Description, &p.Position,
		&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, workflow.ErrNotFound
	}
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, t *Treatment) error {
	t.ID = uuid.New()
	for _, p := range t.Phases {
		p.ID = uuid.New()
		p.TreatmentID = t.ID
	}
	if len(t.Phases) > 0 {
		t.CurrentPhaseID = &t.Phases[0].ID
	}

	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO treatment (id, title, description, patient_id, doctor_id, payment_mode, status, current_phase_id, start_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		t.ID, t.Title, t.Description, t.PatientID, t.DoctorID, t.PaymentMode,
		t.Status, t.CurrentPhaseID, t.StartDate)
	if err != nil {
		return err
	}
	for _, p := range t.Phases {
		if _, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO treatment_phase (id, treatment_id, title, description, position)
			VALUES ($1,$2,$3,$4,$5)`,
			p.ID, p.TreatmentID, p.Title, p.Description, p.Position); err != nil {
			return err
		}
		for _, it := range p.Items {
			it.PhaseID = p.ID
			if _, err := r.conn(ctx).Exec(ctx, `
				INSERT INTO phase_item (phase_id, item_id, kind, assigned_to)
				VALUES ($1,$2,$3,$4)`,
				it.PhaseID, it.ItemID, it.Kind, it.AssignedTo); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Treatment, error) {
	t, err := r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM treatment WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	t.Phases, err = r.phasesFor(ctx, t.ID)
	return t, err
}

func (r *repoPG) phasesFor(ctx context.Context, treatmentID uuid.UUID) ([]*Phase, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+phaseCols+` FROM treatment_phase
		WHERE treatment_id = $1 ORDER BY position`, treatmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var phases []*Phase
	for rows.Next() {
		p, err := r.scanPhase(rows)
		if err != nil {
			return nil, err
		}
		phases = append(phases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, p := range phases {
		if p.Items, err = r.itemsFor(ctx, p.ID); err != nil {
			return nil, err
		}
	}
	return phases, nil
}

func (r *repoPG) itemsFor(ctx context.Context, phaseID uuid.UUID) ([]*PhaseItem, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT phase_id, item_id, kind, assigned_to
		FROM phase_item WHERE phase_id = $1`, phaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*PhaseItem
	for rows.Next() {
		var it PhaseItem
		if err := rows.Scan(&it.PhaseID, &it.ItemID, &it.Kind, &it.AssignedTo); err != nil {
			return nil, err
		}
		items = append(items, &it)
	}
	return items, rows.Err()
}

func (r *repoPG) List(ctx context.Context, doctorID, patientID uuid.UUID, limit, offset int) ([]*Treatment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM treatment
		WHERE ($1 = '00000000-0000-0000-0000-000000000000'::uuid OR doctor_id = $1)
		  AND ($2 = '00000000-0000-0000-0000-000000000000'::uuid OR patient_id = $2)`,
		doctorID, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+cols+` FROM treatment
		WHERE ($1 = '00000000-0000-0000-0000-000000000000'::uuid OR doctor_id = $1)
		  AND ($2 = '00000000-0000-0000-0000-000000000000'::uuid OR patient_id = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`, doctorID, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Treatment
	for rows.Next() {
		t, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, rows.Err()
}

func (r *repoPG) GetPhase(ctx context.Context, phaseID uuid.UUID) (*Phase, error) {
	p, err := r.scanPhase(r.conn(ctx).QueryRow(ctx,
		`SELECT `+phaseCols+` FROM treatment_phase WHERE id = $1`, phaseID))
	if err != nil {
		return nil, err
	}
	p.Items, err = r.itemsFor(ctx, p.ID)
	return p, err
}

func (r *repoPG) SavePhaseItems(ctx context.Context, p *Phase) error {
	for _, it := range p.Items {
		if _, err := r.conn(ctx).Exec(ctx, `
			UPDATE phase_item SET assigned_to=$3
			WHERE phase_id = $1 AND item_id = $2`,
			p.ID, it.ItemID, it.AssignedTo); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, from []workflow.TreatmentStatus, to workflow.TreatmentStatus, endDate *time.Time) error {
	states := make([]string, len(from))
	for i, s := range from {
		states[i] = string(s)
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE treatment SET status=$3, end_date=COALESCE($4, end_date), updated_at=NOW()
		WHERE id = $1 AND status = ANY($2)`,
		id, states, to, endDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return workflow.ErrInvalidStateTransition
	}
	return nil
}

func (r *repoPG) SetCurrentPhase(ctx context.Context, treatmentID, phaseID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE treatment SET current_phase_id=$2, updated_at=NOW() WHERE id = $1`,
		treatmentID, phaseID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return workflow.ErrNotFound
	}
	return nil
}

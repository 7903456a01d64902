package schedule

import (
	"context"
	"errors"

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

const cols = `id, phase_id, treatment_id, doctor_id, patient_id, title, start_time, estimated_end, status, created_at, updated_at`

func (r *repoPG) scan(row pgx.Row) (*Schedule, error) {
	var s Schedule
	err := row.Scan(&s.ID, &s.PhaseID, &s.TreatmentID, &s.DoctorID, &s.PatientID,
		&s.Title, &s.StartTime, &s.EstimatedEnd, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, workflow.ErrNotFound
	}
	return &s, err
}

func (r *repoPG) Create(ctx context.Context, s *Schedule) error {
	s.ID = uuid.New()
	if s.Status == "" {
		s.Status = workflow.SchedulePending
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO schedule (id, phase_id, treatment_id, doctor_id, patient_id, title, start_time, estimated_end, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		s.ID, s.PhaseID, s.TreatmentID, s.DoctorID, s.PatientID, s.Title,
		s.StartTime, s.EstimatedEnd, s.Status)
	if err != nil {
		return err
	}
	return r.replaceServices(ctx, s.ID, s.ServiceIDs)
}

func (r *repoPG) Update(ctx context.Context, s *Schedule) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE schedule
		SET title=$2, start_time=$3, estimated_end=$4, status=$5, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.Title, s.StartTime, s.EstimatedEnd, s.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return workflow.ErrNotFound
	}
	return r.replaceServices(ctx, s.ID, s.ServiceIDs)
}

func (r *repoPG) replaceServices(ctx context.Context, scheduleID uuid.UUID, serviceIDs []uuid.UUID) error {
	if _, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM schedule_service WHERE schedule_id = $1`, scheduleID); err != nil {
		return err
	}
	for _, sid := range serviceIDs {
		if _, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO schedule_service (schedule_id, service_id)
			VALUES ($1,$2)`, scheduleID, sid); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) servicesFor(ctx context.Context, scheduleID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT service_id FROM schedule_service WHERE schedule_id = $1`, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	s, err := r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM schedule WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	s.ServiceIDs, err = r.servicesFor(ctx, s.ID)
	return s, err
}

func (r *repoPG) list(ctx context.Context, query string, args ...interface{}) ([]*Schedule, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Schedule
	for rows.Next() {
		s, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, s := range items {
		if s.ServiceIDs, err = r.servicesFor(ctx, s.ID); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (r *repoPG) ListBlockingByDoctor(ctx context.Context, doctorID, exclude uuid.UUID) ([]*Schedule, error) {
	return r.list(ctx, `
		SELECT `+cols+` FROM schedule
		WHERE doctor_id = $1 AND id <> $2 AND status IN ('PENDING','CHANGED')
		ORDER BY start_time`, doctorID, exclude)
}

func (r *repoPG) ListByDoctorWindow(ctx context.Context, doctorID uuid.UUID, window workflow.Interval, status workflow.ScheduleStatus) ([]*Schedule, error) {
	return r.list(ctx, `
		SELECT `+cols+` FROM schedule
		WHERE doctor_id = $1
		  AND start_time < $3 AND estimated_end > $2
		  AND ($4 = '' OR status = $4)
		ORDER BY start_time`, doctorID, window.Start, window.End, status)
}

func (r *repoPG) ListByPhase(ctx context.Context, phaseID uuid.UUID) ([]*Schedule, error) {
	return r.list(ctx, `
		SELECT `+cols+` FROM schedule WHERE phase_id = $1 ORDER BY start_time`, phaseID)
}

func (r *repoPG) StatusesForPhase(ctx context.Context, phaseID uuid.UUID) ([]workflow.ScheduleStatus, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT status FROM schedule WHERE phase_id = $1`, phaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []workflow.ScheduleStatus
	for rows.Next() {
		var s workflow.ScheduleStatus
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, from []workflow.ScheduleStatus, to workflow.ScheduleStatus) error {
	states := make([]string, len(from))
	for i, s := range from {
		states[i] = string(s)
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE schedule SET status=$3, updated_at=NOW()
		WHERE id = $1 AND status = ANY($2)`,
		id, states, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return workflow.ErrInvalidStateTransition
	}
	return nil
}

func (r *repoPG) CancelOpenByTreatment(ctx context.Context, treatmentID uuid.UUID) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE schedule SET status='CANCELLED', updated_at=NOW()
		WHERE treatment_id = $1 AND status IN ('PENDING','CHANGED')`, treatmentID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

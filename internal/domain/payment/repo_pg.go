package payment

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

const cols = `id, treatment_id, schedule_id, amount, status, deadline, paid_at, created_at, updated_at`

func (r *repoPG) scan(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.TreatmentID, &p.ScheduleID, &p.Amount, &p.Status,
		&p.Deadline, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, workflow.ErrNotFound
	}
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Payment) error {
	p.ID = uuid.New()
	if p.Status == "" {
		p.Status = workflow.PaymentPending
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO payment (id, treatment_id, schedule_id, amount, status, deadline)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		p.ID, p.TreatmentID, p.ScheduleID, p.Amount, p.Status, p.Deadline)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM payment WHERE id = $1`, id))
}

func (r *repoPG) ListByTreatment(ctx context.Context, treatmentID uuid.UUID) ([]*Payment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+cols+` FROM payment WHERE treatment_id = $1 ORDER BY created_at`, treatmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Payment
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *repoPG) ListByStatus(ctx context.Context, status workflow.PaymentStatus, limit, offset int) ([]*Payment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM payment WHERE ($1 = '' OR status = $1)`, status).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+cols+` FROM payment
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Payment
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, from, to workflow.PaymentStatus) error {
	var query string
	if to == workflow.PaymentCompleted {
		query = `UPDATE payment SET status=$3, paid_at=NOW(), updated_at=NOW() WHERE id = $1 AND status = $2`
	} else {
		query = `UPDATE payment SET status=$3, updated_at=NOW() WHERE id = $1 AND status = $2`
	}
	tag, err := r.conn(ctx).Exec(ctx, query, id, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return workflow.ErrInvalidStateTransition
	}
	return nil
}

func (r *repoPG) StatusesForTreatment(ctx context.Context, treatmentID uuid.UUID) ([]workflow.PaymentStatus, error) {
	return r.statuses(ctx, `SELECT status FROM payment WHERE treatment_id = $1`, treatmentID)
}

func (r *repoPG) StatusesForSchedule(ctx context.Context, scheduleID uuid.UUID) ([]workflow.PaymentStatus, error) {
	return r.statuses(ctx, `SELECT status FROM payment WHERE schedule_id = $1`, scheduleID)
}

func (r *repoPG) statuses(ctx context.Context, query string, id uuid.UUID) ([]workflow.PaymentStatus, error) {
	rows, err := r.conn(ctx).Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []workflow.PaymentStatus
	for rows.Next() {
		var s workflow.PaymentStatus
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

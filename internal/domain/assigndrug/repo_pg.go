package assigndrug

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

const cols = `id, treatment_id, phase_id, doctor_id, status, note, created_at, updated_at`

func (r *repoPG) scan(row pgx.Row) (*AssignDrug, error) {
	var a AssignDrug
	err := row.Scan(&a.ID, &a.TreatmentID, &a.PhaseID, &a.DoctorID, &a.Status,
		&a.Note, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, workflow.ErrNotFound
	}
	return &a, err
}

func (r *repoPG) Create(ctx context.Context, a *AssignDrug) error {
	a.ID = uuid.New()
	if a.Status == "" {
		a.Status = workflow.AssignDrugPending
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO assign_drug (id, treatment_id, phase_id, doctor_id, status, note)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		a.ID, a.TreatmentID, a.PhaseID, a.DoctorID, a.Status, a.Note)
	if err != nil {
		return err
	}
	for _, item := range a.Items {
		item.ID = uuid.New()
		item.AssignDrugID = a.ID
		if _, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO assign_drug_item (id, assign_drug_id, drug_id, quantity, dosage)
			VALUES ($1,$2,$3,$4,$5)`,
			item.ID, item.AssignDrugID, item.DrugID, item.Quantity, item.Dosage); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*AssignDrug, error) {
	a, err := r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM assign_drug WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	items, err := r.itemsFor(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	a.Items = items
	return a, nil
}

func (r *repoPG) itemsFor(ctx context.Context, assignDrugID uuid.UUID) ([]*Item, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, assign_drug_id, drug_id, quantity, dosage
		FROM assign_drug_item WHERE assign_drug_id = $1`, assignDrugID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.AssignDrugID, &it.DrugID, &it.Quantity, &it.Dosage); err != nil {
			return nil, err
		}
		items = append(items, &it)
	}
	return items, rows.Err()
}

func (r *repoPG) ListByTreatment(ctx context.Context, treatmentID uuid.UUID) ([]*AssignDrug, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+cols+` FROM assign_drug WHERE treatment_id = $1 ORDER BY created_at`, treatmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var bundles []*AssignDrug
	for rows.Next() {
		a, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, a := range bundles {
		items, err := r.itemsFor(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		a.Items = items
	}
	return bundles, nil
}

func (r *repoPG) ListByStatus(ctx context.Context, status workflow.AssignDrugStatus, limit, offset int) ([]*AssignDrug, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM assign_drug WHERE ($1 = '' OR status = $1)`, status).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+cols+` FROM assign_drug
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var bundles []*AssignDrug
	for rows.Next() {
		a, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		bundles = append(bundles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for _, a := range bundles {
		items, err := r.itemsFor(ctx, a.ID)
		if err != nil {
			return nil, 0, err
		}
		a.Items = items
	}
	return bundles, total, nil
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, from, to workflow.AssignDrugStatus) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE assign_drug SET status=$3, updated_at=NOW() WHERE id = $1 AND status = $2`,
		id, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return workflow.ErrInvalidStateTransition
	}
	return nil
}

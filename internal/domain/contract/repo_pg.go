package contract

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

const cols = `id, treatment_id, file_url, deadline, signed_at, signed_by, created_at, updated_at`

func (r *repoPG) scan(row pgx.Row) (*Contract, error) {
	var c Contract
	err := row.Scan(&c.ID, &c.TreatmentID, &c.FileURL, &c.Deadline,
		&c.SignedAt, &c.SignedBy, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, workflow.ErrNotFound
	}
	return &c, err
}

func (r *repoPG) Create(ctx context.Context, c *Contract) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO contract (id, treatment_id, file_url, deadline)
		VALUES ($1,$2,$3,$4)`,
		c.ID, c.TreatmentID, c.FileURL, c.Deadline)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Contract, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM contract WHERE id = $1`, id))
}

func (r *repoPG) GetByTreatment(ctx context.Context, treatmentID uuid.UUID) (*Contract, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM contract WHERE treatment_id = $1`, treatmentID))
}

func (r *repoPG) List(ctx context.Context, signed *bool, limit, offset int) ([]*Contract, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM contract
		WHERE $1::boolean IS NULL OR (signed_at IS NOT NULL) = $1`, signed).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+cols+` FROM contract
		WHERE $1::boolean IS NULL OR (signed_at IS NOT NULL) = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, signed, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Contract
	for rows.Next() {
		c, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

func (r *repoPG) MarkSigned(ctx context.Context, id uuid.UUID, signedAt time.Time, signedBy string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE contract SET signed_at=$2, signed_by=$3, updated_at=NOW()
		WHERE id = $1 AND signed_at IS NULL`,
		id, signedAt, signedBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return workflow.ErrInvalidStateTransition
	}
	return nil
}

func (r *repoPG) ListUnsignedPastDeadline(ctx context.Context, now time.Time) ([]*Contract, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+cols+` FROM contract
		WHERE signed_at IS NULL AND deadline < $1`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Contract
	for rows.Next() {
		c, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

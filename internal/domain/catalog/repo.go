package catalog

import (
	"context"

	"github.com/google/uuid"
)

type ServiceRepository interface {
	Create(ctx context.Context, s *Service) error
	GetByID(ctx context.Context, id uuid.UUID) (*Service, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Service, error)
	Update(ctx context.Context, s *Service) error
	Search(ctx context.Context, name string, limit, offset int) ([]*Service, int, error)
}

type DrugRepository interface {
	Create(ctx context.Context, d *Drug) error
	GetByID(ctx context.Context, id uuid.UUID) (*Drug, error)
	Update(ctx context.Context, d *Drug) error
	Search(ctx context.Context, name string, limit, offset int) ([]*Drug, int, error)
}

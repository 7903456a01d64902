package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ferticare/portal/internal/domain/workflow"
)

type CatalogService struct {
	services ServiceRepository
	drugs    DrugRepository
}

func NewCatalogService(services ServiceRepository, drugs DrugRepository) *CatalogService {
	return &CatalogService{services: services, drugs: drugs}
}

func (s *CatalogService) CreateService(ctx context.Context, svc *Service) error {
	if svc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if svc.Price < 0 {
		return fmt.Errorf("price must not be negative")
	}
	svc.Active = true
	return s.services.Create(ctx, svc)
}

func (s *CatalogService) GetService(ctx context.Context, id uuid.UUID) (*Service, error) {
	return s.services.GetByID(ctx, id)
}

func (s *CatalogService) SearchServices(ctx context.Context, name string, limit, offset int) ([]*Service, int, error) {
	return s.services.Search(ctx, name, limit, offset)
}

// ResolveServices loads the given service IDs and verifies every one exists
// and is active. Appointment creation refuses unknown services.
func (s *CatalogService) ResolveServices(ctx context.Context, ids []uuid.UUID) ([]*Service, error) {
	if len(ids) == 0 {
		return nil, workflow.ErrEmptyServiceSet
	}
	items, err := s.services.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	found := make(map[uuid.UUID]bool, len(items))
	for _, item := range items {
		found[item.ID] = true
	}
	for _, id := range ids {
		if !found[id] {
			return nil, fmt.Errorf("service %s: %w", id, workflow.ErrNotFound)
		}
	}
	return items, nil
}

// PriceOf totals the catalog price of a service set, resolving every id
// first. Treatment billing derives payment amounts from it.
func (s *CatalogService) PriceOf(ctx context.Context, ids []uuid.UUID) (int64, error) {
	items, err := s.ResolveServices(ctx, ids)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, item := range items {
		total += item.Price
	}
	return total, nil
}

func (s *CatalogService) CreateDrug(ctx context.Context, d *Drug) error {
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	if d.Price < 0 {
		return fmt.Errorf("price must not be negative")
	}
	d.Active = true
	return s.drugs.Create(ctx, d)
}

func (s *CatalogService) GetDrug(ctx context.Context, id uuid.UUID) (*Drug, error) {
	return s.drugs.GetByID(ctx, id)
}

func (s *CatalogService) SearchDrugs(ctx context.Context, name string, limit, offset int) ([]*Drug, int, error) {
	return s.drugs.Search(ctx, name, limit, offset)
}

package product

import (
	"context"

	"storefront/internal/domain"
)

type productService struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &productService{repo: repo}
}

// GetProductsByIDs returns the sellable products among ids. Unknown, inactive
// and deleted products are reported in notFoundIDs, each once, in input order.
func (s *productService) GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, []string, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	products, err := s.repo.FindByIDs(ctx, unique)
	if err != nil {
		return nil, nil, err
	}

	found := make(map[string]domain.Product, len(products))
	for _, p := range products {
		if p.Sellable() {
			found[p.ID] = p
		}
	}

	var notFoundIDs []string
	for _, id := range unique {
		if _, ok := found[id]; !ok {
			notFoundIDs = append(notFoundIDs, id)
		}
	}

	return found, notFoundIDs, nil
}

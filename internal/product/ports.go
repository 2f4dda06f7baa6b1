package product

import (
	"context"

	"storefront/internal/domain"
)

// Service resolves catalog entries for order pricing.
type Service interface {
	GetProductsByIDs(ctx context.Context, ids []string) (found map[string]domain.Product, notFoundIDs []string, err error)
}

type Repository interface {
	FindByIDs(ctx context.Context, ids []string) ([]domain.Product, error)
}

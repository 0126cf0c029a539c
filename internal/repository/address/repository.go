package address

import (
	"context"

	"customer-service/internal/domain"
)

// Repository persists customer addresses.
type Repository interface {
	CreateAll(ctx context.Context, addresses []domain.Address) ([]domain.Address, error)
}

package customer

import (
	"context"

	"customer-service/internal/domain"
)

// Repository persists and fetches customers together with their phones and
// roles. Reads also return addresses; writes leave addresses to the address store.
type Repository interface {
	Create(ctx context.Context, c domain.Customer) (*domain.Customer, error)
	Update(ctx context.Context, c domain.Customer) (*domain.Customer, error)
	GetByID(ctx context.Context, id int64) (*domain.Customer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
	List(ctx context.Context) ([]domain.Customer, error)
	ListPage(ctx context.Context, req domain.PageRequest) (domain.Page[domain.Customer], error)
	Delete(ctx context.Context, id int64) error
}

package address

import (
	"context"

	"customer-service/internal/db"
	"customer-service/internal/domain"
)

type postgresRepo struct {
	q db.Querier
}

func NewPostgres(q db.Querier) Repository {
	return &postgresRepo{q: q}
}

// CreateAll inserts every address in order. Callers wanting all-or-nothing
// semantics pass a transaction as the Querier.
func (r *postgresRepo) CreateAll(ctx context.Context, addresses []domain.Address) ([]domain.Address, error) {
	const q = `
INSERT INTO addresses (street, number, complement, district, postal_code, customer_id, city_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id
`
	out := make([]domain.Address, 0, len(addresses))
	for _, a := range addresses {
		if err := r.q.QueryRow(ctx, q, a.Street, a.Number, a.Complement, a.District, a.PostalCode, a.CustomerID, a.City.ID).Scan(&a.ID); err != nil {
			return nil, db.Translate(err)
		}
		out = append(out, a)
	}
	return out, nil
}

// Package unitofwork binds the customer and address stores to one Postgres transaction.
package unitofwork

import (
	"context"

	"customer-service/internal/db"
	addressrepo "customer-service/internal/repository/address"
	customerrepo "customer-service/internal/repository/customer"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Stores are the repositories available inside a unit of work.
type Stores struct {
	Customers customerrepo.Repository
	Addresses addressrepo.Repository
}

// Postgres runs units of work against a pgx pool.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) *Postgres {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Postgres{pool: pool, logger: logger}
}

// Do runs fn in one transaction; any error from fn rolls back every write.
func (u *Postgres) Do(ctx context.Context, fn func(Stores) error) error {
	return db.InTx(ctx, u.pool, func(tx pgx.Tx) error {
		return fn(Stores{
			Customers: customerrepo.NewPostgres(tx, u.logger),
			Addresses: addressrepo.NewPostgres(tx),
		})
	})
}

package customer

import (
	"context"
	"fmt"

	"customer-service/internal/db"
	"customer-service/internal/domain"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const selectCustomer = `
SELECT id, name, email, tax_id, COALESCE(customer_type, 0), password_hash, created_at
FROM customers
`

var sortColumns = map[string]string{
	"id":    "id",
	"name":  "name",
	"email": "email",
	"taxId": "tax_id",
	"type":  "customer_type",
}

type postgresRepo struct {
	q      db.Querier
	logger *zap.Logger
}

// NewPostgres returns a Repository backed by Postgres. q may be a pool or a transaction.
func NewPostgres(q db.Querier, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{q: q, logger: logger}
}

func (r *postgresRepo) Create(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	const q = `
INSERT INTO customers (name, email, tax_id, customer_type, password_hash)
VALUES ($1, $2, $3, NULLIF($4, 0), $5)
RETURNING id, created_at
`
	if err := r.q.QueryRow(ctx, q, c.Name, c.Email, c.TaxID, int(c.Type), c.PasswordHash).Scan(&c.ID, &c.CreatedAt); err != nil {
		r.logger.Warn("customer repo: insert failed", zap.String("email", c.Email), zap.Error(err))
		return nil, db.Translate(err)
	}
	if err := r.writeCollections(ctx, c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Update changes name and email only. Tax id, type, password, phones and
// roles are left untouched.
func (r *postgresRepo) Update(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	const q = `UPDATE customers SET name = $1, email = $2 WHERE id = $3`
	cmd, err := r.q.Exec(ctx, q, c.Name, c.Email, c.ID)
	if err != nil {
		r.logger.Warn("customer repo: update failed", zap.Int64("id", c.ID), zap.Error(err))
		return nil, db.Translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return nil, domain.ErrNotFound
	}
	return r.GetByID(ctx, c.ID)
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	return r.getOne(ctx, selectCustomer+`WHERE id = $1`, id)
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	return r.getOne(ctx, selectCustomer+`WHERE lower(email) = lower($1) LIMIT 1`, email)
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.Customer, error) {
	return r.list(ctx, selectCustomer+`ORDER BY id`)
}

func (r *postgresRepo) ListPage(ctx context.Context, req domain.PageRequest) (domain.Page[domain.Customer], error) {
	col, ok := sortColumns[req.OrderBy]
	if !ok {
		return domain.Page[domain.Customer]{}, domain.NewValidationError("orderBy", "cannot sort by "+req.OrderBy)
	}
	dir := "ASC"
	if req.Direction == domain.Desc {
		dir = "DESC"
	}

	var total int64
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM customers`).Scan(&total); err != nil {
		return domain.Page[domain.Customer]{}, err
	}

	q := fmt.Sprintf("%sORDER BY %s %s, id ASC LIMIT $1 OFFSET $2", selectCustomer, col, dir)
	items, err := r.list(ctx, q, req.Size, req.Offset())
	if err != nil {
		return domain.Page[domain.Customer]{}, err
	}
	return domain.NewPage(items, req, total), nil
}

func (r *postgresRepo) Delete(ctx context.Context, id int64) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		r.logger.Info("customer repo: delete rejected", zap.Int64("id", id), zap.Error(err))
		return db.Translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) writeCollections(ctx context.Context, c domain.Customer) error {
	for i, phone := range c.Phones {
		if _, err := r.q.Exec(ctx, `INSERT INTO customer_phones (customer_id, position, number) VALUES ($1, $2, $3)`, c.ID, i, phone); err != nil {
			return db.Translate(err)
		}
	}
	for _, role := range c.Roles {
		if _, err := r.q.Exec(ctx, `INSERT INTO customer_roles (customer_id, role) VALUES ($1, $2) ON CONFLICT DO NOTHING`, c.ID, int(role)); err != nil {
			return db.Translate(err)
		}
	}
	return nil
}

func (r *postgresRepo) getOne(ctx context.Context, q string, args ...any) (*domain.Customer, error) {
	var c domain.Customer
	if err := scanCustomer(r.q.QueryRow(ctx, q, args...), &c); err != nil {
		return nil, db.Translate(err)
	}
	out := []domain.Customer{c}
	if err := r.hydrate(ctx, out); err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (r *postgresRepo) list(ctx context.Context, q string, args ...any) ([]domain.Customer, error) {
	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Customer
	for rows.Next() {
		var c domain.Customer
		if err := scanCustomer(rows, &c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.hydrate(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// hydrate loads phones, roles and addresses for every customer in one query each.
func (r *postgresRepo) hydrate(ctx context.Context, customers []domain.Customer) error {
	if len(customers) == 0 {
		return nil
	}
	ids := make([]int64, len(customers))
	byID := make(map[int64]*domain.Customer, len(customers))
	for i := range customers {
		ids[i] = customers[i].ID
		byID[customers[i].ID] = &customers[i]
	}

	rows, err := r.q.Query(ctx, `
SELECT customer_id, number FROM customer_phones
WHERE customer_id = ANY($1)
ORDER BY customer_id, position
`, ids)
	if err != nil {
		return err
	}
	err = forEachRow(rows, func(row pgx.Rows) error {
		var id int64
		var number string
		if err := row.Scan(&id, &number); err != nil {
			return err
		}
		byID[id].Phones = append(byID[id].Phones, number)
		return nil
	})
	if err != nil {
		return err
	}

	rows, err = r.q.Query(ctx, `SELECT customer_id, role FROM customer_roles WHERE customer_id = ANY($1) ORDER BY role`, ids)
	if err != nil {
		return err
	}
	err = forEachRow(rows, func(row pgx.Rows) error {
		var id int64
		var code int
		if err := row.Scan(&id, &code); err != nil {
			return err
		}
		role, err := domain.RoleFromCode(code)
		if err != nil {
			r.logger.Warn("customer repo: unknown role", zap.Int64("id", id), zap.Int("role", code))
			return nil
		}
		byID[id].Roles = append(byID[id].Roles, role)
		return nil
	})
	if err != nil {
		return err
	}

	rows, err = r.q.Query(ctx, `
SELECT a.id, a.street, a.number, a.complement, a.district, a.postal_code, a.customer_id,
       ci.id, ci.name, s.id, s.name
FROM addresses a
JOIN cities ci ON ci.id = a.city_id
JOIN states s ON s.id = ci.state_id
WHERE a.customer_id = ANY($1)
ORDER BY a.customer_id, a.id
`, ids)
	if err != nil {
		return err
	}
	return forEachRow(rows, func(row pgx.Rows) error {
		var a domain.Address
		var st domain.State
		if err := row.Scan(&a.ID, &a.Street, &a.Number, &a.Complement, &a.District, &a.PostalCode, &a.CustomerID,
			&a.City.ID, &a.City.Name, &st.ID, &st.Name); err != nil {
			return err
		}
		a.City.State = &st
		byID[a.CustomerID].Addresses = append(byID[a.CustomerID].Addresses, a)
		return nil
	})
}

func scanCustomer(row pgx.Row, c *domain.Customer) error {
	var typ int
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.TaxID, &typ, &c.PasswordHash, &c.CreatedAt); err != nil {
		return err
	}
	c.Type = domain.CustomerType(typ)
	return nil
}

func forEachRow(rows pgx.Rows, fn func(pgx.Rows) error) error {
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

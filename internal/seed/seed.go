package seed

import (
	"context"
	"errors"
	"fmt"

	"customer-service/internal/db"
	"customer-service/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type passwordEncoder interface {
	Encode(plaintext string) (string, error)
}

type citySeed struct {
	Name  string
	State string
}

type customerSeed struct {
	Name     string
	Email    string
	TaxID    string
	Type     domain.CustomerType
	Password string
	Phones   []string
	Roles    []domain.Role
	Street   string
	Number   string
	District string
	Postal   string
	City     string
}

var cities = []citySeed{
	{Name: "Uberlândia", State: "Minas Gerais"},
	{Name: "São Paulo", State: "São Paulo"},
	{Name: "Campinas", State: "São Paulo"},
}

// Apply inserts reference data plus one regular and one admin customer for
// manual testing. It is idempotent: existing rows are left untouched.
func Apply(ctx context.Context, pool *pgxpool.Pool, encoder passwordEncoder, adminPassword string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	cityIDs := make(map[string]int64, len(cities))
	for _, c := range cities {
		id, err := ensureCity(ctx, pool, c)
		if err != nil {
			return fmt.Errorf("ensure city %s: %w", c.Name, err)
		}
		cityIDs[c.Name] = id
	}

	customers := []customerSeed{
		{
			Name: "Maria Silva", Email: "maria@example.com", TaxID: "52998224725",
			Type: domain.CustomerTypeIndividual, Password: "123",
			Phones: []string{"27363323", "93838393"}, Roles: []domain.Role{domain.RoleCustomer},
			Street: "Rua Flores", Number: "300", District: "Jardim", Postal: "38220834", City: "Uberlândia",
		},
		{
			Name: "Ana Costa", Email: "admin@example.com", TaxID: "11222333000181",
			Type: domain.CustomerTypeCompany, Password: adminPassword,
			Phones: []string{"93883321"}, Roles: []domain.Role{domain.RoleCustomer, domain.RoleAdmin},
			Street: "Avenida Floriano", Number: "2106", District: "Centro", Postal: "281777012", City: "São Paulo",
		},
	}
	for _, c := range customers {
		created, err := ensureCustomer(ctx, pool, encoder, c, cityIDs[c.City])
		if err != nil {
			return fmt.Errorf("ensure customer %s: %w", c.Email, err)
		}
		if created {
			logger.Info("seed: customer created", zap.String("email", c.Email))
		}
	}
	return nil
}

func ensureCity(ctx context.Context, pool *pgxpool.Pool, c citySeed) (int64, error) {
	const stateQ = `
INSERT INTO states (name)
VALUES ($1)
ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
RETURNING id
`
	const cityQ = `
INSERT INTO cities (name, state_id)
VALUES ($1, $2)
ON CONFLICT (name, state_id) DO UPDATE SET name = EXCLUDED.name
RETURNING id
`
	var stateID, cityID int64
	if err := pool.QueryRow(ctx, stateQ, c.State).Scan(&stateID); err != nil {
		return 0, err
	}
	if err := pool.QueryRow(ctx, cityQ, c.Name, stateID).Scan(&cityID); err != nil {
		return 0, err
	}
	return cityID, nil
}

// ensureCustomer inserts c unless its email is already registered.
func ensureCustomer(ctx context.Context, pool *pgxpool.Pool, encoder passwordEncoder, c customerSeed, cityID int64) (bool, error) {
	var existing int64
	err := pool.QueryRow(ctx, `SELECT id FROM customers WHERE lower(email) = lower($1)`, c.Email).Scan(&existing)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}

	hash, err := encoder.Encode(c.Password)
	if err != nil {
		return false, err
	}
	return true, db.InTx(ctx, pool, func(tx pgx.Tx) error {
		var id int64
		if err := tx.QueryRow(ctx, `
INSERT INTO customers (name, email, tax_id, customer_type, password_hash)
VALUES ($1, $2, $3, $4, $5)
RETURNING id
`, c.Name, c.Email, c.TaxID, int(c.Type), hash).Scan(&id); err != nil {
			return db.Translate(err)
		}
		for i, phone := range c.Phones {
			if _, err := tx.Exec(ctx, `INSERT INTO customer_phones (customer_id, position, number) VALUES ($1, $2, $3)`, id, i, phone); err != nil {
				return err
			}
		}
		for _, role := range c.Roles {
			if _, err := tx.Exec(ctx, `INSERT INTO customer_roles (customer_id, role) VALUES ($1, $2)`, id, int(role)); err != nil {
				return err
			}
		}
		_, err := tx.Exec(ctx, `
INSERT INTO addresses (street, number, district, postal_code, customer_id, city_id)
VALUES ($1, $2, $3, $4, $5, $6)
`, c.Street, c.Number, c.District, c.Postal, id, cityID)
		return err
	})
}

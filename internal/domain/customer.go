package domain

import (
	"fmt"
	"strings"
	"time"
)

// CustomerType distinguishes individuals (CPF) from companies (CNPJ).
type CustomerType int

const (
	CustomerTypeIndividual CustomerType = 1
	CustomerTypeCompany    CustomerType = 2
)

// CustomerTypeFromCode maps the numeric registration code onto a CustomerType.
func CustomerTypeFromCode(code int) (CustomerType, error) {
	switch CustomerType(code) {
	case CustomerTypeIndividual, CustomerTypeCompany:
		return CustomerType(code), nil
	}
	return 0, fmt.Errorf("invalid customer type code: %d", code)
}

func (t CustomerType) String() string {
	switch t {
	case CustomerTypeIndividual:
		return "PESSOAFISICA"
	case CustomerTypeCompany:
		return "PESSOAJURIDICA"
	}
	return "UNKNOWN"
}

// Role is a permission profile attached to a customer.
type Role int

const (
	RoleAdmin    Role = 1
	RoleCustomer Role = 2
)

// RoleFromCode converts a stored role code.
func RoleFromCode(code int) (Role, error) {
	switch Role(code) {
	case RoleAdmin, RoleCustomer:
		return Role(code), nil
	}
	return 0, fmt.Errorf("invalid role code: %d", code)
}

// ParseRole accepts the names produced by Role.String.
func ParseRole(name string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "ROLE_ADMIN", "ADMIN":
		return RoleAdmin, nil
	case "ROLE_CLIENTE", "CLIENTE", "CUSTOMER":
		return RoleCustomer, nil
	}
	return 0, fmt.Errorf("invalid role: %q", name)
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "ROLE_ADMIN"
	case RoleCustomer:
		return "ROLE_CLIENTE"
	}
	return "ROLE_UNKNOWN"
}

// State is a federative unit owning cities.
type State struct {
	ID   int64  `json:"id"`
	Name string `json:"nome"`
}

// City is referenced by addresses. Only ID is set when built from a registration.
type City struct {
	ID    int64  `json:"id"`
	Name  string `json:"nome,omitempty"`
	State *State `json:"estado,omitempty"`
}

// Address belongs to exactly one customer.
type Address struct {
	ID         int64  `json:"id"`
	Street     string `json:"logradouro"`
	Number     string `json:"numero"`
	Complement string `json:"complemento,omitempty"`
	District   string `json:"bairro"`
	PostalCode string `json:"cep"`
	CustomerID int64  `json:"-"`
	City       City   `json:"cidade"`
}

// Customer is a registered buyer. ID is zero until the customer is persisted.
type Customer struct {
	ID           int64        `json:"id"`
	Name         string       `json:"nome"`
	Email        string       `json:"email"`
	TaxID        string       `json:"cpfOuCnpj"`
	Type         CustomerType `json:"tipo"`
	PasswordHash string       `json:"-"`
	Phones       []string     `json:"telefones"`
	Addresses    []Address    `json:"enderecos"`
	Roles        []Role       `json:"-"`
	CreatedAt    time.Time    `json:"-"`
}

// NewCustomer builds an unpersisted customer holding the default CUSTOMER role.
func NewCustomer(name, email, taxID string, typ CustomerType, passwordHash string) Customer {
	return Customer{
		Name:         name,
		Email:        email,
		TaxID:        taxID,
		Type:         typ,
		PasswordHash: passwordHash,
		Roles:        []Role{RoleCustomer},
	}
}

// HasRole reports whether the customer holds role r.
func (c Customer) HasRole(r Role) bool {
	for _, have := range c.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// AddRole appends r unless already present.
func (c *Customer) AddRole(r Role) {
	if !c.HasRole(r) {
		c.Roles = append(c.Roles, r)
	}
}

// AddPhone appends number keeping insertion order and dropping duplicates.
func (c *Customer) AddPhone(number string) {
	for _, p := range c.Phones {
		if p == number {
			return
		}
	}
	c.Phones = append(c.Phones, number)
}

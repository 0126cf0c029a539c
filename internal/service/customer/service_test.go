package customer

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sort"
	"strings"
	"testing"

	"customer-service/internal/auth"
	"customer-service/internal/domain"
	"customer-service/internal/picture"
	addressrepo "customer-service/internal/repository/address"
	customerrepo "customer-service/internal/repository/customer"
	"customer-service/internal/repository/unitofwork"
	"customer-service/internal/storage"
)

// memoryStore is the shared state behind the in-memory repositories.
type memoryStore struct {
	customers  map[int64]domain.Customer
	addresses  []domain.Address
	nextID     int64
	nextAddrID int64
	referenced map[int64]bool
	cities     map[int64]bool
	failAddrs  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		customers:  make(map[int64]domain.Customer),
		referenced: make(map[int64]bool),
		cities:     map[int64]bool{1: true, 2: true},
	}
}

func (s *memoryStore) snapshot() *memoryStore {
	cp := *s
	cp.customers = make(map[int64]domain.Customer, len(s.customers))
	for k, v := range s.customers {
		cp.customers[k] = v
	}
	cp.addresses = append([]domain.Address(nil), s.addresses...)
	return &cp
}

func (s *memoryStore) restore(from *memoryStore) {
	s.customers = from.customers
	s.addresses = from.addresses
	s.nextID = from.nextID
	s.nextAddrID = from.nextAddrID
}

// memoryUnitOfWork restores the store when fn fails.
type memoryUnitOfWork struct {
	store *memoryStore
}

func (u *memoryUnitOfWork) Do(_ context.Context, fn func(unitofwork.Stores) error) error {
	before := u.store.snapshot()
	err := fn(unitofwork.Stores{
		Customers: &memoryCustomers{store: u.store},
		Addresses: &memoryAddresses{store: u.store},
	})
	if err != nil {
		u.store.restore(before)
	}
	return err
}

type memoryCustomers struct {
	store *memoryStore
}

var _ customerrepo.Repository = (*memoryCustomers)(nil)

func (r *memoryCustomers) emailTaken(email string, except int64) bool {
	for id, c := range r.store.customers {
		if id != except && strings.EqualFold(c.Email, email) {
			return true
		}
	}
	return false
}

func (r *memoryCustomers) Create(_ context.Context, c domain.Customer) (*domain.Customer, error) {
	if r.emailTaken(c.Email, 0) {
		return nil, domain.ErrAlreadyExists
	}
	r.store.nextID++
	c.ID = r.store.nextID
	c.Addresses = nil
	r.store.customers[c.ID] = c
	return &c, nil
}

func (r *memoryCustomers) Update(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	if _, ok := r.store.customers[c.ID]; !ok {
		return nil, domain.ErrNotFound
	}
	stored := r.store.customers[c.ID]
	if r.emailTaken(c.Email, c.ID) {
		return nil, domain.ErrAlreadyExists
	}
	stored.Name = c.Name
	stored.Email = c.Email
	r.store.customers[c.ID] = stored
	return r.GetByID(ctx, c.ID)
}

func (r *memoryCustomers) hydrate(c domain.Customer) *domain.Customer {
	c.Addresses = nil
	for _, a := range r.store.addresses {
		if a.CustomerID == c.ID {
			c.Addresses = append(c.Addresses, a)
		}
	}
	return &c
}

func (r *memoryCustomers) GetByID(_ context.Context, id int64) (*domain.Customer, error) {
	c, ok := r.store.customers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.hydrate(c), nil
}

func (r *memoryCustomers) GetByEmail(_ context.Context, email string) (*domain.Customer, error) {
	for _, c := range r.store.customers {
		if strings.EqualFold(c.Email, email) {
			return r.hydrate(c), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memoryCustomers) List(_ context.Context) ([]domain.Customer, error) {
	out := make([]domain.Customer, 0, len(r.store.customers))
	for _, c := range r.store.customers {
		out = append(out, *r.hydrate(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryCustomers) ListPage(ctx context.Context, req domain.PageRequest) (domain.Page[domain.Customer], error) {
	all, _ := r.List(ctx)
	less := func(a, b domain.Customer) bool { return a.ID < b.ID }
	if req.OrderBy == "name" {
		less = func(a, b domain.Customer) bool { return a.Name < b.Name }
	}
	sort.SliceStable(all, func(i, j int) bool {
		if req.Direction == domain.Desc {
			return less(all[j], all[i])
		}
		return less(all[i], all[j])
	})
	start := req.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + req.Size
	if end > len(all) {
		end = len(all)
	}
	return domain.NewPage(all[start:end], req, int64(len(all))), nil
}

func (r *memoryCustomers) Delete(_ context.Context, id int64) error {
	if _, ok := r.store.customers[id]; !ok {
		return domain.ErrNotFound
	}
	if r.store.referenced[id] {
		return domain.ErrReferenced
	}
	delete(r.store.customers, id)
	kept := r.store.addresses[:0]
	for _, a := range r.store.addresses {
		if a.CustomerID != id {
			kept = append(kept, a)
		}
	}
	r.store.addresses = kept
	return nil
}

type memoryAddresses struct {
	store *memoryStore
}

var _ addressrepo.Repository = (*memoryAddresses)(nil)

func (r *memoryAddresses) CreateAll(_ context.Context, addresses []domain.Address) ([]domain.Address, error) {
	if r.store.failAddrs != nil {
		return nil, r.store.failAddrs
	}
	out := make([]domain.Address, 0, len(addresses))
	for _, a := range addresses {
		if !r.store.cities[a.City.ID] {
			return nil, domain.ErrReferenced
		}
		r.store.nextAddrID++
		a.ID = r.store.nextAddrID
		r.store.addresses = append(r.store.addresses, a)
		out = append(out, a)
	}
	return out, nil
}

// plainEncoder keeps tests fast; bcrypt is covered in the auth package.
type plainEncoder struct{}

func (plainEncoder) Encode(p string) (string, error) { return "hashed:" + p, nil }

type recordingMetrics struct {
	outcomes map[string][]string
}

func (m *recordingMetrics) RecordOperation(op, outcome string) {
	if m.outcomes == nil {
		m.outcomes = make(map[string][]string)
	}
	m.outcomes[op] = append(m.outcomes[op], outcome)
}

type fixture struct {
	svc     *Service
	store   *memoryStore
	files   *storage.Memory
	metrics *recordingMetrics
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := newMemoryStore()
	files, err := storage.NewMemory("http://files.test/bucket")
	if err != nil {
		t.Fatalf("memory storage: %v", err)
	}
	metrics := &recordingMetrics{}
	svc := New(Deps{
		Customers:  &memoryCustomers{store: store},
		UnitOfWork: &memoryUnitOfWork{store: store},
		Encoder:    plainEncoder{},
		Images:     picture.New(),
		Storage:    files,
		Metrics:    metrics,
	}, PictureConfig{Prefix: "cp", Size: 20})
	return fixture{svc: svc, store: store, files: files, metrics: metrics}
}

func strPtr(s string) *string { return &s }

func validInput() NewCustomerInput {
	return NewCustomerInput{
		Name:       "Maria Silva",
		Email:      "maria@example.com",
		TaxID:      "52998224725",
		Type:       1,
		Password:   "secret",
		Street:     "Rua Flores",
		Number:     "300",
		Complement: "Apto 303",
		District:   "Jardim",
		PostalCode: "38220834",
		Phone1:     "27363323",
		Phone2:     strPtr("93838393"),
		CityID:     1,
	}
}

func insertCustomer(t *testing.T, f fixture, in NewCustomerInput) *domain.Customer {
	t.Helper()
	c, err := f.svc.FromDTO(in)
	if err != nil {
		t.Fatalf("from dto: %v", err)
	}
	created, err := f.svc.Insert(context.Background(), c)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	return created
}

func admin() *domain.Principal {
	return &domain.Principal{ID: 999, Username: "admin@example.com", Roles: []domain.Role{domain.RoleAdmin}}
}

func TestFromDTO_BuildsCustomerWithAddressAndPhones(t *testing.T) {
	f := newFixture(t)
	in := validInput()
	in.Phone3 = strPtr("27363323")

	c, err := f.svc.FromDTO(in)
	if err != nil {
		t.Fatalf("from dto: %v", err)
	}
	if c.ID != 0 || c.Type != domain.CustomerTypeIndividual {
		t.Fatalf("unexpected customer %+v", c)
	}
	if c.PasswordHash != "hashed:secret" {
		t.Fatalf("password must be encoded, got %q", c.PasswordHash)
	}
	if len(c.Phones) != 2 || c.Phones[0] != "27363323" || c.Phones[1] != "93838393" {
		t.Fatalf("unexpected phones %v", c.Phones)
	}
	if len(c.Addresses) != 1 || c.Addresses[0].City.ID != 1 || c.Addresses[0].Street != "Rua Flores" {
		t.Fatalf("unexpected addresses %+v", c.Addresses)
	}
	if !c.HasRole(domain.RoleCustomer) || c.HasRole(domain.RoleAdmin) {
		t.Fatalf("unexpected roles %v", c.Roles)
	}
}

func TestFromDTO_Phones(t *testing.T) {
	cases := []struct {
		name   string
		phone2 *string
		phone3 *string
		want   []string
	}{
		{"only first", nil, nil, []string{"27363323"}},
		{"first and third", nil, strPtr("11111111"), []string{"27363323", "11111111"}},
		{"all three in order", strPtr("93838393"), strPtr("11111111"), []string{"27363323", "93838393", "11111111"}},
		{"repeated number kept once", strPtr("93838393"), strPtr("27363323"), []string{"27363323", "93838393"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			in := validInput()
			in.Phone2 = tc.phone2
			in.Phone3 = tc.phone3

			c, err := f.svc.FromDTO(in)
			if err != nil {
				t.Fatalf("from dto: %v", err)
			}
			if strings.Join(c.Phones, ",") != strings.Join(tc.want, ",") {
				t.Fatalf("expected phones %v, got %v", tc.want, c.Phones)
			}
		})
	}
}

func TestRegistration_EndToEndWithBcrypt(t *testing.T) {
	store := newMemoryStore()
	store.cities[7] = true
	encoder := auth.NewPasswordEncoder(4)
	svc := New(Deps{
		Customers:  &memoryCustomers{store: store},
		UnitOfWork: &memoryUnitOfWork{store: store},
		Encoder:    encoder,
	}, PictureConfig{Prefix: "cp", Size: 20})
	ctx := context.Background()

	in := validInput()
	in.CityID = 7
	in.Phone1 = "111"
	in.Phone2 = strPtr("222")
	if err := svc.ValidateNew(ctx, in); err != nil {
		t.Fatalf("validate: %v", err)
	}
	c, err := svc.FromDTO(in)
	if err != nil {
		t.Fatalf("from dto: %v", err)
	}
	created, err := svc.Insert(ctx, c)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := svc.Find(ctx, admin(), created.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got.Phones) != 2 || got.Phones[0] != "111" || got.Phones[1] != "222" {
		t.Fatalf("unexpected phones %v", got.Phones)
	}
	if len(got.Addresses) != 1 || got.Addresses[0].City.ID != 7 || got.Addresses[0].CustomerID != created.ID {
		t.Fatalf("unexpected addresses %+v", got.Addresses)
	}
	if got.PasswordHash == in.Password || !encoder.Matches(in.Password, got.PasswordHash) {
		t.Fatalf("stored credential must be a hash of the password")
	}
	if encoder.Matches("wrong", got.PasswordHash) {
		t.Fatalf("hash must not match another password")
	}
}

func TestFromDTO_RejectsUnknownType(t *testing.T) {
	f := newFixture(t)
	in := validInput()
	in.Type = 7

	_, err := f.svc.FromDTO(in)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFromUpdateDTO(t *testing.T) {
	f := newFixture(t)
	c := f.svc.FromUpdateDTO(5, UpdateInput{Name: "New", Email: "new@example.com"})
	if c.ID != 5 || c.Name != "New" || c.Email != "new@example.com" || c.TaxID != "" || c.PasswordHash != "" {
		t.Fatalf("unexpected update payload %+v", c)
	}
}

func TestInsert_AssignsIDAndLinksAddresses(t *testing.T) {
	f := newFixture(t)
	c, err := f.svc.FromDTO(validInput())
	if err != nil {
		t.Fatalf("from dto: %v", err)
	}
	c.ID = 42

	created, err := f.svc.Insert(context.Background(), c)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if created.ID == 42 || created.ID == 0 {
		t.Fatalf("insert must assign a fresh id, got %d", created.ID)
	}
	if len(created.Addresses) != 1 || created.Addresses[0].CustomerID != created.ID || created.Addresses[0].ID == 0 {
		t.Fatalf("addresses not linked: %+v", created.Addresses)
	}

	stored, err := f.svc.Find(context.Background(), admin(), created.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(stored.Addresses) != 1 {
		t.Fatalf("expected stored address, got %+v", stored.Addresses)
	}
}

func TestInsert_RollsBackWhenAddressesFail(t *testing.T) {
	f := newFixture(t)
	f.store.failAddrs = errors.New("disk full")
	c, _ := f.svc.FromDTO(validInput())

	if _, err := f.svc.Insert(context.Background(), c); err == nil {
		t.Fatalf("expected insert to fail")
	}
	if len(f.store.customers) != 0 || len(f.store.addresses) != 0 {
		t.Fatalf("partial insert left behind: %d customers, %d addresses", len(f.store.customers), len(f.store.addresses))
	}
}

func TestInsert_UnknownCityIsValidationError(t *testing.T) {
	f := newFixture(t)
	in := validInput()
	in.CityID = 77
	c, _ := f.svc.FromDTO(in)

	_, err := f.svc.Insert(context.Background(), c)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Fields[0].Field != "cidadeId" {
		t.Fatalf("expected cidadeId validation error, got %v", err)
	}
	if len(f.store.customers) != 0 {
		t.Fatalf("customer must not be stored")
	}
}

func TestInsert_DuplicateEmailIsValidationError(t *testing.T) {
	f := newFixture(t)
	insertCustomer(t, f, validInput())

	in := validInput()
	in.Email = "MARIA@example.com"
	c, _ := f.svc.FromDTO(in)
	_, err := f.svc.Insert(context.Background(), c)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Fields[0].Field != "email" {
		t.Fatalf("expected email validation error, got %v", err)
	}
}

func TestFind_Authorization(t *testing.T) {
	f := newFixture(t)
	created := insertCustomer(t, f, validInput())
	ctx := context.Background()

	self := &domain.Principal{ID: created.ID, Username: created.Email, Roles: []domain.Role{domain.RoleCustomer}}
	if _, err := f.svc.Find(ctx, self, created.ID); err != nil {
		t.Fatalf("self lookup: %v", err)
	}
	if _, err := f.svc.Find(ctx, admin(), created.ID); err != nil {
		t.Fatalf("admin lookup: %v", err)
	}

	other := &domain.Principal{ID: created.ID + 1, Username: "x@example.com", Roles: []domain.Role{domain.RoleCustomer}}
	var authErr *domain.AuthorizationError
	if _, err := f.svc.Find(ctx, other, created.ID); !errors.As(err, &authErr) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	if _, err := f.svc.Find(ctx, nil, created.ID); !errors.As(err, &authErr) {
		t.Fatalf("anonymous must be denied, got %v", err)
	}
	if got := f.metrics.outcomes["find"]; got[len(got)-1] != "forbidden" {
		t.Fatalf("expected forbidden outcome, got %v", got)
	}
}

func TestFind_MissingIsObjectNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Find(context.Background(), admin(), 12)
	var nf *domain.ObjectNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found, got %v", err)
	}
	if nf.Error() != "object not found! id: 12, type: domain.Customer" {
		t.Fatalf("unexpected message %q", nf.Error())
	}
}

func TestFindByEmail(t *testing.T) {
	f := newFixture(t)
	created := insertCustomer(t, f, validInput())
	ctx := context.Background()

	self := &domain.Principal{ID: created.ID, Username: created.Email, Roles: []domain.Role{domain.RoleCustomer}}
	got, err := f.svc.FindByEmail(ctx, self, created.Email)
	if err != nil || got.ID != created.ID {
		t.Fatalf("self lookup: %+v %v", got, err)
	}
	got, err = f.svc.FindByEmail(ctx, self, "MARIA@Example.com")
	if err != nil || got.ID != created.ID {
		t.Fatalf("self lookup must ignore email case: %+v %v", got, err)
	}

	other := &domain.Principal{ID: 50, Username: "x@example.com", Roles: []domain.Role{domain.RoleCustomer}}
	var nf *domain.ObjectNotFoundError
	if _, err := f.svc.FindByEmail(ctx, other, created.Email); !errors.As(err, &nf) || nf.Error() != "access denied" {
		t.Fatalf("expected access denied not-found, got %v", err)
	}
	if _, err := f.svc.FindByEmail(ctx, admin(), "nobody@example.com"); !errors.As(err, &nf) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdate_MergesOnlyNameAndEmail(t *testing.T) {
	f := newFixture(t)
	created := insertCustomer(t, f, validInput())
	self := &domain.Principal{ID: created.ID, Username: created.Email, Roles: []domain.Role{domain.RoleCustomer}}

	patch := f.svc.FromUpdateDTO(created.ID, UpdateInput{Name: "Maria Souza", Email: "souza@example.com"})
	updated, err := f.svc.Update(context.Background(), self, patch)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Maria Souza" || updated.Email != "souza@example.com" {
		t.Fatalf("fields not merged: %+v", updated)
	}
	if updated.TaxID != created.TaxID || updated.PasswordHash != created.PasswordHash || len(updated.Phones) != 2 {
		t.Fatalf("unrelated fields changed: %+v", updated)
	}
	if len(updated.Addresses) != 1 || !updated.HasRole(domain.RoleCustomer) {
		t.Fatalf("addresses or roles lost: %+v", updated)
	}
}

func TestUpdate_ForeignCustomerDenied(t *testing.T) {
	f := newFixture(t)
	created := insertCustomer(t, f, validInput())
	other := &domain.Principal{ID: created.ID + 1, Roles: []domain.Role{domain.RoleCustomer}}

	_, err := f.svc.Update(context.Background(), other, domain.Customer{ID: created.ID, Name: "X", Email: "x@example.com"})
	var authErr *domain.AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	if f.store.customers[created.ID].Name != "Maria Silva" {
		t.Fatalf("customer must be unchanged")
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := insertCustomer(t, f, validInput())
	in := validInput()
	in.Email = "joao@example.com"
	second := insertCustomer(t, f, in)
	f.store.referenced[second.ID] = true

	if err := f.svc.Delete(ctx, admin(), first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var nf *domain.ObjectNotFoundError
	if _, err := f.svc.Find(ctx, admin(), first.ID); !errors.As(err, &nf) {
		t.Fatalf("deleted customer must be gone, got %v", err)
	}

	err := f.svc.Delete(ctx, admin(), second.ID)
	var integrity *domain.DataIntegrityError
	if !errors.As(err, &integrity) || !errors.Is(err, domain.ErrReferenced) {
		t.Fatalf("expected data integrity error, got %v", err)
	}
	if _, ok := f.store.customers[second.ID]; !ok {
		t.Fatalf("referenced customer must remain")
	}

	if err := f.svc.Delete(ctx, admin(), 404); !errors.As(err, &nf) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFindAllAndFindPage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, name := range []string{"Carla", "Ana", "Bruno"} {
		in := validInput()
		in.Name = name
		in.Email = strings.ToLower(name) + "@example.com"
		insertCustomer(t, f, in)
	}

	all, err := f.svc.FindAll(ctx)
	if err != nil || len(all) != 3 {
		t.Fatalf("find all: %d %v", len(all), err)
	}

	page, err := f.svc.FindPage(ctx, 0, 2, "nome", "asc")
	if err != nil {
		t.Fatalf("find page: %v", err)
	}
	if page.TotalElements != 3 || page.TotalPages != 2 || len(page.Content) != 2 {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Content[0].Name != "Ana" || page.Content[1].Name != "Bruno" {
		t.Fatalf("unexpected order %s, %s", page.Content[0].Name, page.Content[1].Name)
	}

	last, err := f.svc.FindPage(ctx, 1, 2, "nome", "DESC")
	if err != nil || len(last.Content) != 1 || last.Content[0].Name != "Ana" {
		t.Fatalf("unexpected last page %+v %v", last, err)
	}

	empty, err := f.svc.FindPage(ctx, 5, 2, "id", "ASC")
	if err != nil || len(empty.Content) != 0 || empty.TotalElements != 3 {
		t.Fatalf("out of range page: %+v %v", empty, err)
	}
}

func TestFindPage_RejectsBadParameters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cases := []struct {
		name      string
		page      int
		size      int
		orderBy   string
		direction string
	}{
		{"direction", 0, 24, "nome", "sideways"},
		{"order by", 0, 24, "password", "ASC"},
		{"negative page", -1, 24, "nome", "ASC"},
		{"zero size", 0, 0, "nome", "ASC"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.FindPage(ctx, tc.page, tc.size, tc.orderBy, tc.direction)
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestValidateNew(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.svc.ValidateNew(ctx, validInput()); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}

	insertCustomer(t, f, validInput())
	in := validInput()
	in.TaxID = "11111111111"
	err := f.svc.ValidateNew(ctx, in)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || len(verr.Fields) != 2 {
		t.Fatalf("expected tax id and email errors, got %v", err)
	}

	company := validInput()
	company.Email = "empresa@example.com"
	company.Type = 2
	company.TaxID = "11222333000181"
	if err := f.svc.ValidateNew(ctx, company); err != nil {
		t.Fatalf("valid CNPJ rejected: %v", err)
	}
	company.TaxID = "52998224725"
	if err := f.svc.ValidateNew(ctx, company); !errors.As(err, &verr) || verr.Fields[0].Field != "cpfOuCnpj" {
		t.Fatalf("CPF for a company must be rejected, got %v", err)
	}
}

func TestValidateUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := insertCustomer(t, f, validInput())
	in := validInput()
	in.Email = "joao@example.com"
	second := insertCustomer(t, f, in)

	if err := f.svc.ValidateUpdate(ctx, first.ID, UpdateInput{Name: "M", Email: first.Email}); err != nil {
		t.Fatalf("keeping own email rejected: %v", err)
	}
	var verr *domain.ValidationError
	if err := f.svc.ValidateUpdate(ctx, first.ID, UpdateInput{Name: "M", Email: second.Email}); !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestUploadProfilePicture(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := &domain.Principal{ID: 7, Username: "maria@example.com", Roles: []domain.Role{domain.RoleCustomer}}

	u, err := f.svc.UploadProfilePicture(ctx, user, pngBytes(t, 60, 30))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if u.String() != "http://files.test/bucket/cp7.jpg" {
		t.Fatalf("unexpected url %s", u)
	}
	obj, ok := f.files.Get("cp7.jpg")
	if !ok || obj.ContentType != "image" {
		t.Fatalf("object not stored: %+v", obj)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(obj.Data))
	if err != nil || format != "jpeg" || cfg.Width != 20 || cfg.Height != 20 {
		t.Fatalf("unexpected stored image %s %dx%d %v", format, cfg.Width, cfg.Height, err)
	}

	if _, err := f.svc.UploadProfilePicture(ctx, user, pngBytes(t, 10, 10)); err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if f.files.Len() != 1 {
		t.Fatalf("re-upload must overwrite, have %d objects", f.files.Len())
	}
}

func TestUploadProfilePicture_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var authErr *domain.AuthorizationError
	if _, err := f.svc.UploadProfilePicture(ctx, nil, pngBytes(t, 4, 4)); !errors.As(err, &authErr) {
		t.Fatalf("anonymous upload must be denied, got %v", err)
	}
	user := &domain.Principal{ID: 1, Roles: []domain.Role{domain.RoleCustomer}}
	if _, err := f.svc.UploadProfilePicture(ctx, user, []byte("GIF89a not really")); !errors.Is(err, picture.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}
	if f.files.Len() != 0 {
		t.Fatalf("nothing should be stored")
	}
}

package customer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"net/url"
	"strconv"
	"strings"

	"customer-service/internal/domain"
	customerrepo "customer-service/internal/repository/customer"
	"customer-service/internal/repository/unitofwork"
	"customer-service/internal/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("service/customer")

var customerTypeName = fmt.Sprintf("%T", domain.Customer{})

type unitOfWork interface {
	Do(ctx context.Context, fn func(unitofwork.Stores) error) error
}

type passwordEncoder interface {
	Encode(plaintext string) (string, error)
}

type imageService interface {
	Decode(data []byte) (image.Image, error)
	CropSquare(img image.Image) image.Image
	Resize(img image.Image, size int) image.Image
	Encode(img image.Image, format string) (*bytes.Reader, error)
}

type operationRecorder interface {
	RecordOperation(operation, outcome string)
}

// Deps are the collaborators of Service. Metrics and Logger are optional.
type Deps struct {
	Customers  customerrepo.Repository
	UnitOfWork unitOfWork
	Encoder    passwordEncoder
	Images     imageService
	Storage    storage.Store
	Metrics    operationRecorder
	Logger     *zap.Logger
}

// PictureConfig controls where and how large profile pictures are stored.
type PictureConfig struct {
	Prefix string
	Size   int
}

// Service implements customer lookups, mutations, registration mapping and
// profile picture uploads. Callers pass the request principal explicitly;
// a nil principal is anonymous.
type Service struct {
	repo     customerrepo.Repository
	uow      unitOfWork
	encoder  passwordEncoder
	images   imageService
	store    storage.Store
	metrics  operationRecorder
	logger   *zap.Logger
	pictures PictureConfig
}

func New(deps Deps, pictures PictureConfig) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     deps.Customers,
		uow:      deps.UnitOfWork,
		encoder:  deps.Encoder,
		images:   deps.Images,
		store:    deps.Storage,
		metrics:  deps.Metrics,
		logger:   logger,
		pictures: pictures,
	}
}

// NewCustomerInput is the flat registration payload.
type NewCustomerInput struct {
	Name       string  `json:"nome"`
	Email      string  `json:"email"`
	TaxID      string  `json:"cpfOuCnpj"`
	Type       int     `json:"tipo"`
	Password   string  `json:"senha"`
	Street     string  `json:"logradouro"`
	Number     string  `json:"numero"`
	Complement string  `json:"complemento"`
	District   string  `json:"bairro"`
	PostalCode string  `json:"cep"`
	Phone1     string  `json:"telefone1"`
	Phone2     *string `json:"telefone2"`
	Phone3     *string `json:"telefone3"`
	CityID     int64   `json:"cidadeId"`
}

// UpdateInput carries the only fields Update may change.
type UpdateInput struct {
	Name  string `json:"nome"`
	Email string `json:"email"`
}

// Find returns customer id. Only an ADMIN or the customer itself may read it.
func (s *Service) Find(ctx context.Context, user *domain.Principal, id int64) (c *domain.Customer, err error) {
	ctx, span := tracer.Start(ctx, "CustomerService.Find")
	span.SetAttributes(attribute.Int64("customer.id", id))
	defer func() { s.finish(span, "find", err) }()

	if user == nil || !user.HasRole(domain.RoleAdmin) && id != user.ID {
		return nil, &domain.AuthorizationError{Message: "access denied"}
	}
	c, err = s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.ObjectNotFoundError{Resource: customerTypeName, ID: strconv.FormatInt(id, 10)}
		}
		return nil, err
	}
	return c, nil
}

// FindByEmail returns the customer registered under email, compared
// case-insensitively. An unauthorized caller gets an ObjectNotFoundError
// rather than an AuthorizationError. That error kind is kept for
// compatibility with existing clients and is probably a defect; see the
// open questions in DESIGN.md.
func (s *Service) FindByEmail(ctx context.Context, user *domain.Principal, email string) (c *domain.Customer, err error) {
	ctx, span := tracer.Start(ctx, "CustomerService.FindByEmail")
	defer func() { s.finish(span, "find_by_email", err) }()

	if user == nil || !user.HasRole(domain.RoleAdmin) && !strings.EqualFold(strings.TrimSpace(email), user.Username) {
		return nil, &domain.ObjectNotFoundError{Resource: customerTypeName, Message: "access denied"}
	}
	c, err = s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.ObjectNotFoundError{Resource: customerTypeName, ID: strconv.FormatInt(user.ID, 10)}
		}
		return nil, err
	}
	return c, nil
}

// Insert persists c and its addresses atomically. Any id on c is discarded.
func (s *Service) Insert(ctx context.Context, c domain.Customer) (created *domain.Customer, err error) {
	ctx, span := tracer.Start(ctx, "CustomerService.Insert")
	defer func() { s.finish(span, "insert", err) }()

	c.ID = 0
	err = s.uow.Do(ctx, func(st unitofwork.Stores) error {
		saved, err := st.Customers.Create(ctx, c)
		if err != nil {
			return fmt.Errorf("create customer: %w", err)
		}
		addresses := make([]domain.Address, len(c.Addresses))
		for i, a := range c.Addresses {
			a.ID = 0
			a.CustomerID = saved.ID
			addresses[i] = a
		}
		saved.Addresses, err = st.Addresses.CreateAll(ctx, addresses)
		if err != nil {
			return fmt.Errorf("create addresses: %w", err)
		}
		created = saved
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyExists):
			return nil, domain.NewValidationError("email", "email already registered")
		case errors.Is(err, domain.ErrReferenced):
			return nil, domain.NewValidationError("cidadeId", "city does not exist")
		}
		return nil, err
	}
	span.SetAttributes(attribute.Int64("customer.id", created.ID))
	s.logger.Info("customer created", zap.Int64("customer_id", created.ID), zap.Int("addresses", len(created.Addresses)))
	return created, nil
}

// Update copies name and email from c onto the stored customer c.ID.
// The caller must be allowed to Find that customer.
func (s *Service) Update(ctx context.Context, user *domain.Principal, c domain.Customer) (updated *domain.Customer, err error) {
	ctx, span := tracer.Start(ctx, "CustomerService.Update")
	defer func() { s.finish(span, "update", err) }()

	existing, err := s.Find(ctx, user, c.ID)
	if err != nil {
		return nil, err
	}
	updated, err = s.repo.Update(ctx, mergeUpdate(*existing, c))
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.NewValidationError("email", "email already registered")
		}
		return nil, err
	}
	return updated, nil
}

// Delete removes customer id unless other records still reference it.
func (s *Service) Delete(ctx context.Context, user *domain.Principal, id int64) (err error) {
	ctx, span := tracer.Start(ctx, "CustomerService.Delete")
	defer func() { s.finish(span, "delete", err) }()

	if _, err := s.Find(ctx, user, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrReferenced) {
			return &domain.DataIntegrityError{Message: "cannot delete: related entities exist", Err: err}
		}
		return err
	}
	s.logger.Info("customer deleted", zap.Int64("customer_id", id))
	return nil
}

// FindAll lists every customer. Access is restricted to admins by the router.
func (s *Service) FindAll(ctx context.Context) (out []domain.Customer, err error) {
	ctx, span := tracer.Start(ctx, "CustomerService.FindAll")
	defer func() { s.finish(span, "find_all", err) }()

	return s.repo.List(ctx)
}

// FindPage returns page (zero-based) of linesPerPage customers sorted by orderBy.
func (s *Service) FindPage(ctx context.Context, page, linesPerPage int, orderBy, direction string) (out domain.Page[domain.Customer], err error) {
	ctx, span := tracer.Start(ctx, "CustomerService.FindPage")
	defer func() { s.finish(span, "find_page", err) }()

	dir, err := domain.ParseDirection(direction)
	if err != nil {
		return domain.Page[domain.Customer]{}, err
	}
	field, err := domain.CanonicalCustomerSort(orderBy)
	if err != nil {
		return domain.Page[domain.Customer]{}, err
	}
	req, err := domain.NewPageRequest(page, linesPerPage, field, dir)
	if err != nil {
		return domain.Page[domain.Customer]{}, err
	}
	return s.repo.ListPage(ctx, req)
}

// FromDTO builds an unpersisted customer with one address and up to three
// phones. The password is hashed immediately; plaintext is never kept.
func (s *Service) FromDTO(in NewCustomerInput) (domain.Customer, error) {
	typ, err := domain.CustomerTypeFromCode(in.Type)
	if err != nil {
		return domain.Customer{}, domain.NewValidationError("tipo", err.Error())
	}
	hash, err := s.encoder.Encode(in.Password)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("encode password: %w", err)
	}

	c := domain.NewCustomer(in.Name, in.Email, in.TaxID, typ, hash)
	c.Addresses = append(c.Addresses, domain.Address{
		Street:     in.Street,
		Number:     in.Number,
		Complement: in.Complement,
		District:   in.District,
		PostalCode: in.PostalCode,
		City:       domain.City{ID: in.CityID},
	})
	c.AddPhone(in.Phone1)
	if in.Phone2 != nil {
		c.AddPhone(*in.Phone2)
	}
	if in.Phone3 != nil {
		c.AddPhone(*in.Phone3)
	}
	return c, nil
}

// FromUpdateDTO builds the update payload for customer id.
func (s *Service) FromUpdateDTO(id int64, in UpdateInput) domain.Customer {
	return domain.Customer{ID: id, Name: in.Name, Email: in.Email}
}

// ValidateNew checks a registration: tax id check digits for the declared
// customer type and email uniqueness.
func (s *Service) ValidateNew(ctx context.Context, in NewCustomerInput) error {
	verr := &domain.ValidationError{}
	typ, err := domain.CustomerTypeFromCode(in.Type)
	switch {
	case err != nil:
		verr.Add("tipo", "invalid customer type")
	case typ == domain.CustomerTypeIndividual && !domain.IsValidCPF(in.TaxID):
		verr.Add("cpfOuCnpj", "invalid CPF")
	case typ == domain.CustomerTypeCompany && !domain.IsValidCNPJ(in.TaxID):
		verr.Add("cpfOuCnpj", "invalid CNPJ")
	}

	if strings.TrimSpace(in.Email) != "" {
		_, err := s.repo.GetByEmail(ctx, in.Email)
		switch {
		case err == nil:
			verr.Add("email", "email already registered")
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}
	}

	if verr.Empty() {
		return nil
	}
	return verr
}

// ValidateUpdate rejects an email that already belongs to another customer.
func (s *Service) ValidateUpdate(ctx context.Context, id int64, in UpdateInput) error {
	other, err := s.repo.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if other.ID != id {
		return domain.NewValidationError("email", "email already registered")
	}
	return nil
}

// UploadProfilePicture crops and resizes data to a square JPEG and stores it
// under the caller's deterministic key, replacing any previous picture.
func (s *Service) UploadProfilePicture(ctx context.Context, user *domain.Principal, data []byte) (u *url.URL, err error) {
	ctx, span := tracer.Start(ctx, "CustomerService.UploadProfilePicture")
	defer func() { s.finish(span, "upload_picture", err) }()

	if user == nil {
		return nil, &domain.AuthorizationError{Message: "access denied"}
	}

	img, err := s.images.Decode(data)
	if err != nil {
		return nil, err
	}
	img = s.images.CropSquare(img)
	img = s.images.Resize(img, s.pictures.Size)
	body, err := s.images.Encode(img, "jpg")
	if err != nil {
		return nil, err
	}

	key := s.pictures.Prefix + strconv.FormatInt(user.ID, 10) + ".jpg"
	span.SetAttributes(attribute.String("storage.key", key))
	return s.store.Upload(ctx, body, body.Size(), key, "image")
}

// mergeUpdate returns existing with name and email taken from in.
func mergeUpdate(existing, in domain.Customer) domain.Customer {
	existing.Name = in.Name
	existing.Email = in.Email
	return existing
}

// finish ends span, marking it failed when err is set, and counts the outcome.
func (s *Service) finish(span trace.Span, operation string, err error) {
	outcome := outcomeOf(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	span.End()
	if s.metrics != nil {
		s.metrics.RecordOperation(operation, outcome)
	}
}

func outcomeOf(err error) string {
	var (
		authErr      *domain.AuthorizationError
		notFound     *domain.ObjectNotFoundError
		integrityErr *domain.DataIntegrityError
		validation   *domain.ValidationError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &authErr):
		return "forbidden"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &integrityErr):
		return "integrity"
	case errors.As(err, &validation):
		return "invalid"
	}
	return "error"
}

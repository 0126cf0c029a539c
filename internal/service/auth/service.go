// Package auth exchanges customer credentials for access tokens.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"customer-service/internal/domain"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("service/auth")

// ErrInvalidCredentials hides whether the email or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid email or password")

type customerLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.Customer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
}

type passwordMatcher interface {
	Matches(plaintext, hash string) bool
}

type tokenIssuer interface {
	Issue(p *domain.Principal) (string, error)
	TTL() time.Duration
}

type Service struct {
	customers customerLookup
	passwords passwordMatcher
	tokens    tokenIssuer
	logger    *zap.Logger
}

func New(customers customerLookup, passwords passwordMatcher, tokens tokenIssuer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{customers: customers, passwords: passwords, tokens: tokens, logger: logger}
}

// Token is a signed access token and its lifetime.
type Token struct {
	Value     string
	ExpiresIn time.Duration
}

// Login verifies email and password and issues a token for that customer.
func (s *Service) Login(ctx context.Context, email, password string) (Token, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	c, err := s.customers.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Info("login rejected: unknown email")
			return Token{}, ErrInvalidCredentials
		}
		return Token{}, err
	}
	if !s.passwords.Matches(password, c.PasswordHash) {
		s.logger.Info("login rejected: bad password", zap.Int64("customer_id", c.ID))
		return Token{}, ErrInvalidCredentials
	}
	return s.issue(domain.PrincipalOf(*c))
}

// Refresh issues a fresh token for p with the roles currently stored.
func (s *Service) Refresh(ctx context.Context, p *domain.Principal) (Token, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Refresh")
	defer span.End()

	if p == nil {
		return Token{}, &domain.AuthorizationError{Message: "access denied"}
	}
	c, err := s.customers.GetByID(ctx, p.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Token{}, ErrInvalidCredentials
		}
		return Token{}, err
	}
	return s.issue(domain.PrincipalOf(*c))
}

func (s *Service) issue(p *domain.Principal) (Token, error) {
	value, err := s.tokens.Issue(p)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: value, ExpiresIn: s.tokens.TTL()}, nil
}

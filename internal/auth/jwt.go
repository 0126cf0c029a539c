package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"customer-service/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken indicates the bearer token could not be validated.
var ErrInvalidToken = errors.New("invalid token")

// Claims carries the principal inside an access token.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenManager signs and validates HS512 access tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL is the lifetime of issued tokens.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token for p. The subject is the username; the id travels as the JWT ID.
func (m *TokenManager) Issue(p *domain.Principal) (string, error) {
	if p == nil {
		return "", errors.New("principal required")
	}
	roles := make([]string, 0, len(p.Roles))
	for _, r := range p.Roles {
		roles = append(roles, r.String())
	}
	now := m.now()
	claims := Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Username,
			ID:        strconv.FormatInt(p.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			Issuer:    "customer-service",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(m.secret)
}

// Parse validates signature and expiry and rebuilds the principal.
func (m *TokenManager) Parse(token string) (*domain.Principal, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	id, err := strconv.ParseInt(claims.ID, 10, 64)
	if err != nil || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	p := &domain.Principal{ID: id, Username: claims.Subject}
	for _, name := range claims.Roles {
		role, err := domain.ParseRole(name)
		if err != nil {
			return nil, ErrInvalidToken
		}
		p.Roles = append(p.Roles, role)
	}
	return p, nil
}

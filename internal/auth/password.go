package auth

import "golang.org/x/crypto/bcrypt"

// PasswordEncoder hashes and verifies passwords with bcrypt.
type PasswordEncoder struct {
	cost int
}

// NewPasswordEncoder returns an encoder using cost, or bcrypt.DefaultCost when cost is 0.
func NewPasswordEncoder(cost int) *PasswordEncoder {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &PasswordEncoder{cost: cost}
}

// Encode returns the bcrypt hash of plaintext.
func (e *PasswordEncoder) Encode(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), e.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Matches reports whether plaintext hashes to hash.
func (e *PasswordEncoder) Matches(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

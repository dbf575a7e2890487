package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrUnauthorized is returned when an operator key is missing or wrong.
var ErrUnauthorized = errors.New("unauthorized")

// KeyHasher defines hashing strategy for operator keys.
type KeyHasher interface {
	Hash(key string) (string, error)
	Compare(hash string, key string) error
}

// BcryptHasher uses bcrypt to hash keys.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates BcryptHasher with provided cost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash returns bcrypt hash for provided key.
func (h *BcryptHasher) Hash(key string) (string, error) {
	encoded, err := bcrypt.GenerateFromPassword([]byte(key), h.cost)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

// Compare checks key against stored hash.
func (h *BcryptHasher) Compare(hash string, key string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key))
}

// AdminGuard authorizes operator endpoints against a stored key hash.
// Without a hash every request is refused.
type AdminGuard struct {
	hash   string
	hasher KeyHasher
}

// NewAdminGuard constructs AdminGuard.
func NewAdminGuard(hash string, hasher KeyHasher) *AdminGuard {
	return &AdminGuard{hash: hash, hasher: hasher}
}

// Check validates key.
func (g *AdminGuard) Check(key string) error {
	if g.hash == "" || key == "" {
		return ErrUnauthorized
	}
	if err := g.hasher.Compare(g.hash, key); err != nil {
		return ErrUnauthorized
	}
	return nil
}

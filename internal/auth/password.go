package auth

import (
	"fmt"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"

	"github.com/go-rbac-admin/go-rbac-admin/internal/config"
)

// PasswordHasher hashes credentials and compares them against stored digests.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(plain, digest string) bool
}

// Argon2idHasher hashes with argon2id, nil Params means argon2id.DefaultParams.
type Argon2idHasher struct {
	Params *argon2id.Params
}

// Hash implements PasswordHasher.
func (h Argon2idHasher) Hash(plain string) (string, error) {
	params := h.Params
	if params == nil {
		params = argon2id.DefaultParams
	}

	digest, err := argon2id.CreateHash(plain, params)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return digest, nil
}

// Compare implements PasswordHasher.
func (h Argon2idHasher) Compare(plain, digest string) bool {
	match, err := argon2id.ComparePasswordAndHash(plain, digest)

	return err == nil && match
}

// BcryptHasher hashes with bcrypt at Cost.
type BcryptHasher struct {
	Cost int
}

// Hash implements PasswordHasher.
func (h BcryptHasher) Hash(plain string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(digest), nil
}

// Compare implements PasswordHasher.
func (h BcryptHasher) Compare(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}

// NewPasswordHasher returns the hasher selected by cfg.
func NewPasswordHasher(cfg config.Password) PasswordHasher {
	if cfg.Algorithm == config.PasswordBcrypt {
		return BcryptHasher{Cost: cfg.Cost}
	}

	return Argon2idHasher{}
}

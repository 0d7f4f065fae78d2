package auth

import (
	"crypto/subtle"
	"fmt"

	"soundshelf/internal/config"

	"golang.org/x/crypto/bcrypt"
)

// Hasher turns a password into its stored form and checks a candidate
// against a stored value
type Hasher interface {
	Hash(password string) (string, error)
	Verify(stored, password string) bool
}

// NewHasher returns the hasher selected by cfg.PasswordMode
func NewHasher(cfg config.UsersConfig) (Hasher, error) {
	switch cfg.PasswordMode {
	case "", "plain":
		return PlainHasher{}, nil
	case "bcrypt":
		return BcryptHasher{Cost: cfg.BcryptCost}, nil
	default:
		return nil, fmt.Errorf("unknown password mode: %s", cfg.PasswordMode)
	}
}

// PlainHasher stores passwords verbatim
type PlainHasher struct{}

func (PlainHasher) Hash(password string) (string, error) {
	return password, nil
}

func (PlainHasher) Verify(stored, password string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}

// BcryptHasher stores bcrypt hashes. Rows written before bcrypt mode was
// enabled still hold plaintext and are compared verbatim.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	return hashPassword(password, h.Cost)
}

func (h BcryptHasher) Verify(stored, password string) bool {
	if !isHashedPassword(stored) {
		return PlainHasher{}.Verify(stored, password)
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}

// hashPassword hashes a plaintext password using bcrypt
func hashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// isHashedPassword checks if a password string is already hashed
func isHashedPassword(password string) bool {
	// bcrypt hashes have a specific format: $2a$, $2b$, $2x$, or $2y$ followed by cost and salt
	return len(password) >= 4 &&
		password[0] == '$' &&
		password[1] == '2' &&
		(password[2] == 'a' || password[2] == 'b' || password[2] == 'x' || password[2] == 'y') &&
		password[3] == '$'
}

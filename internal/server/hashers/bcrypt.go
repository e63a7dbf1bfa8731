package hashers

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptAlgorithm   = "bcrypt"
	DefaultBcryptCost = 12
)

// BcryptHasher encodes "bcrypt$<bcrypt hash>". bcrypt only looks at the
// first 72 bytes of a password.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Algorithm() string { return BcryptAlgorithm }

func (h *BcryptHasher) Encode(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword(truncate72(password), h.cost)
	if err != nil {
		return "", err
	}
	return BcryptAlgorithm + "$" + string(b), nil
}

func (h *BcryptHasher) Verify(password, encoded string) bool {
	hash, ok := strings.CutPrefix(encoded, BcryptAlgorithm+"$")
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), truncate72(password)) == nil
}

func (h *BcryptHasher) MustUpdate(encoded string) bool {
	hash, ok := strings.CutPrefix(encoded, BcryptAlgorithm+"$")
	if !ok {
		return true
	}
	cost, err := bcrypt.Cost([]byte(hash))
	return err != nil || cost != h.cost
}

// newer x/crypto releases reject passwords over 72 bytes instead of
// truncating them silently.
func truncate72(password string) []byte {
	b := []byte(password)
	if len(b) > 72 {
		b = b[:72]
	}
	return b
}

package hashers

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/fdaccounts/internal/common"
	"golang.org/x/crypto/pbkdf2"
)

const (
	PBKDF2Algorithm         = "pbkdf2_sha256"
	DefaultPBKDF2Iterations = 600000

	pbkdf2SaltLength = 22
	pbkdf2KeyLength  = sha256.Size
)

// PBKDF2Hasher encodes "pbkdf2_sha256$<iterations>$<salt>$<base64 key>".
type PBKDF2Hasher struct {
	iterations int
}

func NewPBKDF2Hasher(iterations int) *PBKDF2Hasher {
	return &PBKDF2Hasher{iterations: iterations}
}

func (h *PBKDF2Hasher) Algorithm() string { return PBKDF2Algorithm }

func (h *PBKDF2Hasher) Encode(password string) (string, error) {
	salt, err := common.MakeRandString(pbkdf2SaltLength)
	if err != nil {
		return "", err
	}
	return h.encode(password, salt, h.iterations), nil
}

func (h *PBKDF2Hasher) encode(password, salt string, iterations int) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), iterations, pbkdf2KeyLength, sha256.New)
	return fmt.Sprintf("%s$%d$%s$%s", PBKDF2Algorithm, iterations, salt, base64.StdEncoding.EncodeToString(key))
}

func (h *PBKDF2Hasher) Verify(password, encoded string) bool {
	iterations, salt, ok := h.decode(encoded)
	if !ok {
		return false
	}
	return constantTimeEqual([]byte(encoded), []byte(h.encode(password, salt, iterations)))
}

func (h *PBKDF2Hasher) MustUpdate(encoded string) bool {
	iterations, _, ok := h.decode(encoded)
	return !ok || iterations != h.iterations
}

func (h *PBKDF2Hasher) decode(encoded string) (iterations int, salt string, ok bool) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 4 || parts[0] != PBKDF2Algorithm {
		return 0, "", false
	}
	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return 0, "", false
	}
	return iterations, parts[2], true
}

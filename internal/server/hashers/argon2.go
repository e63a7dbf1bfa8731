package hashers

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/fdaccounts/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	Argon2Algorithm = "argon2id"

	argon2SaltLength = 16
)

// Argon2Params are the argon2id cost parameters.
type Argon2Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
}

var DefaultArgon2Params = Argon2Params{Time: 2, Memory: 102400, Threads: 8, KeyLen: 32}

// Argon2Hasher encodes
// "argon2id$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<key>".
type Argon2Hasher struct {
	params Argon2Params
}

func NewArgon2Hasher(params Argon2Params) *Argon2Hasher {
	return &Argon2Hasher{params: params}
}

func (h *Argon2Hasher) Algorithm() string { return Argon2Algorithm }

func (h *Argon2Hasher) Encode(password string) (string, error) {
	return h.encode(password, common.GenerateRandByteArray(argon2SaltLength), h.params), nil
}

func (h *Argon2Hasher) encode(password string, salt []byte, p Argon2Params) string {
	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	return fmt.Sprintf("%s$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		Argon2Algorithm, argon2.Version, p.Memory, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt), base64.RawStdEncoding.EncodeToString(key))
}

func (h *Argon2Hasher) Verify(password, encoded string) bool {
	p, salt, key, ok := h.decode(encoded)
	if !ok {
		return false
	}
	p.KeyLen = uint32(len(key))
	return constantTimeEqual([]byte(encoded), []byte(h.encode(password, salt, p)))
}

func (h *Argon2Hasher) MustUpdate(encoded string) bool {
	p, _, key, ok := h.decode(encoded)
	if !ok {
		return true
	}
	p.KeyLen = uint32(len(key))
	return p != h.params
}

func (h *Argon2Hasher) decode(encoded string) (p Argon2Params, salt, key []byte, ok bool) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != Argon2Algorithm || parts[1] != "argon2id" {
		return p, nil, nil, false
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, false
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return p, nil, nil, false
	}
	// argon2.IDKey panics on these
	if p.Time < 1 || p.Threads < 1 || p.Memory < 8*uint32(p.Threads) {
		return p, nil, nil, false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, false
	}
	key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, false
	}
	return p, salt, key, true
}

// Package hashers encodes and verifies account passwords.
//
// Encoded passwords are self-describing: "<algorithm>$<parameters...>", so
// the registry can verify hashes produced by any accepted algorithm and
// report when a hash should be re-encoded with the preferred one.
package hashers

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/fdaccounts/internal/common"
)

// UnusablePrefix marks an encoded password that never verifies.
const UnusablePrefix = "!"

const unusableSuffixLength = 40

// Hasher is one password hashing algorithm.
type Hasher interface {
	// Algorithm is the prefix of encoded values, e.g. "pbkdf2_sha256".
	Algorithm() string
	Encode(password string) (string, error)
	Verify(password, encoded string) bool
	// MustUpdate reports whether encoded uses stale parameters.
	MustUpdate(encoded string) bool
}

// Registry holds the preferred hasher and the accepted legacy ones.
type Registry struct {
	preferred Hasher
	byName    map[string]Hasher
}

// NewRegistry returns a registry that encodes with preferred and also
// verifies the algorithms in accepted.
func NewRegistry(preferred Hasher, accepted ...Hasher) *Registry {
	r := &Registry{preferred: preferred, byName: map[string]Hasher{preferred.Algorithm(): preferred}}
	for _, h := range accepted {
		if _, ok := r.byName[h.Algorithm()]; !ok {
			r.byName[h.Algorithm()] = h
		}
	}
	return r
}

// NewDefaultRegistry prefers the named algorithm and accepts all the
// built-in ones with their default parameters.
func NewDefaultRegistry(preferred string) (*Registry, error) {
	all := []Hasher{NewPBKDF2Hasher(DefaultPBKDF2Iterations), NewArgon2Hasher(DefaultArgon2Params), NewBcryptHasher(DefaultBcryptCost)}
	for i, h := range all {
		if h.Algorithm() == preferred {
			rest := append(append([]Hasher{}, all[:i]...), all[i+1:]...)
			return NewRegistry(h, rest...), nil
		}
	}
	return nil, fmt.Errorf("%w: unknown password hasher %q", common.ErrorImproperlyConfigured, preferred)
}

// KnownAlgorithm reports whether name is one of the built-in algorithms.
func KnownAlgorithm(name string) bool {
	switch name {
	case PBKDF2Algorithm, Argon2Algorithm, BcryptAlgorithm:
		return true
	}
	return false
}

// Preferred returns the hasher used for new passwords.
func (r *Registry) Preferred() Hasher { return r.preferred }

// Make encodes password with the preferred hasher.
func (r *Registry) Make(password string) (string, error) {
	return r.preferred.Encode(password)
}

// MakeUnusable returns a value that no password verifies against.
func (r *Registry) MakeUnusable() string {
	suffix, err := common.MakeRandString(unusableSuffixLength)
	if err != nil {
		return UnusablePrefix
	}
	return UnusablePrefix + suffix
}

// Check verifies password against encoded. mustUpdate is true when the
// password matched but encoded was not produced by the preferred hasher
// with its current parameters. Unusable or unknown encodings never match
// but still cost one hash with the preferred hasher, like a lookup miss.
func (r *Registry) Check(password, encoded string) (ok bool, mustUpdate bool) {
	if !IsUsable(encoded) {
		r.RunDefault(password)
		return false, false
	}
	h, found := r.byName[algorithmOf(encoded)]
	if !found {
		r.RunDefault(password)
		return false, false
	}
	if !h.Verify(password, encoded) {
		return false, false
	}
	return true, h.Algorithm() != r.preferred.Algorithm() || h.MustUpdate(encoded)
}

// RunDefault computes one throwaway hash with the preferred hasher so that
// a lookup miss costs about as much as a password check.
func (r *Registry) RunDefault(password string) {
	_, _ = r.preferred.Encode(password)
}

// IsUsable reports whether encoded can ever verify.
func IsUsable(encoded string) bool {
	return encoded != "" && !strings.HasPrefix(encoded, UnusablePrefix)
}

func algorithmOf(encoded string) string {
	algorithm, _, _ := strings.Cut(encoded, "$")
	return algorithm
}

func constantTimeEqual(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

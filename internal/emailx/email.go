// Package emailx normalizes and validates the email addresses used as
// account identities.
package emailx

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
)

// maxNormalizePasses bounds the fixed-point loop in Normalize. Real input
// settles after one or two passes.
const maxNormalizePasses = 4

var validate = validator.New()

// Normalize returns the canonical form of an email address: the whole
// string NFKC-normalized and the domain part lowercased. The local part
// keeps its case. Input without "@" is only NFKC-normalized.
//
// Normalize is idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	out := s
	for i := 0; i < maxNormalizePasses; i++ {
		next := normalizeOnce(out)
		if next == out {
			break
		}
		out = next
	}
	return out
}

// lowercasing a compatibility character can leave a string that NFKC
// would still change, so normalizeOnce is applied until it is a no-op.
func normalizeOnce(s string) string {
	s = norm.NFKC.String(s)
	at := strings.LastIndex(s, "@")
	if at < 0 {
		return s
	}
	return s[:at+1] + strings.ToLower(s[at+1:])
}

// Validate reports whether s is a syntactically valid email address.
func Validate(s string) error {
	return validate.Var(s, "required,email")
}

// IsValid is Validate as a predicate.
func IsValid(s string) bool {
	return Validate(s) == nil
}

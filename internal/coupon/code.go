package coupon

import (
	"strings"

	"github.com/go-faster/errors"
)

const (
	minCodeLen = 3
	maxCodeLen = 32
)

// ErrInvalidCode is returned by ParseCode for malformed coupon codes.
var ErrInvalidCode = errors.New("invalid coupon code format")

// Code is a normalized coupon code: trimmed, upper-cased, and restricted to
// letters, digits, hyphen and underscore. Normalization is idempotent, so a
// Code may be passed back through ParseCode unchanged.
type Code string

// ParseCode normalizes raw input into a Code. It returns ErrInvalidCode when
// the trimmed value is empty, outside the length bounds, or contains
// characters other than [A-Za-z0-9_-].
func ParseCode(raw string) (Code, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if len(s) < minCodeLen || len(s) > maxCodeLen {
		return "", errors.Wrapf(ErrInvalidCode, "code must be %d-%d characters", minCodeLen, maxCodeLen)
	}
	for i := range len(s) {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return "", errors.Wrapf(ErrInvalidCode, "character %q not allowed", c)
		}
	}
	return Code(s), nil
}

// String returns the normalized code text.
func (c Code) String() string { return string(c) }

// Package allycode handles SWGOH ally codes: the 9-digit player identifiers
// players share to look each other up.
package allycode

import (
	"errors"
	"fmt"
	"strings"
)

// Length is the number of digits in an ally code.
const Length = 9

// ErrInvalid is returned by Parse for anything that is not an ally code.
var ErrInvalid = errors.New("invalid ally code")

// Code is a normalized ally code: exactly nine ASCII digits.
type Code string

// Parse normalizes s into a Code. Digit groups may be separated by '-', ' ' or '.',
// so "123-456-789" and "123456789" are the same code.
func Parse(s string) (Code, error) {
	s = strings.TrimSpace(s)
	var b strings.Builder
	b.Grow(Length)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			if b.Len() == Length {
				return "", fmt.Errorf("%w: %q has more than %d digits", ErrInvalid, s, Length)
			}
			b.WriteByte(c)
		case c == '-' || c == ' ' || c == '.':
			if i == 0 || i == len(s)-1 || !isDigit(s[i-1]) {
				return "", fmt.Errorf("%w: %q has a misplaced separator", ErrInvalid, s)
			}
		default:
			return "", fmt.Errorf("%w: %q contains %q", ErrInvalid, s, c)
		}
	}
	if b.Len() != Length {
		return "", fmt.Errorf("%w: %q has %d digits", ErrInvalid, s, b.Len())
	}
	return Code(b.String()), nil
}

// Valid reports whether s parses as an ally code.
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// String renders the code in the in-game "123-456-789" form.
func (c Code) String() string {
	if len(c) != Length {
		return string(c)
	}
	return string(c[0:3]) + "-" + string(c[3:6]) + "-" + string(c[6:9])
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

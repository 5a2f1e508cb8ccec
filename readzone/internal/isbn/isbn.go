package isbn

import (
	"strings"

	"github.com/zerodice0/readzone/readzone/internal/errs"
)

type FieldDetails struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Normalize strips hyphens and whitespace and checks the ISBN-10/13 shape.
// Check digits are not verified.
func Normalize(raw string) (string, error) {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r == '-' || r == ' ' || r == '\t' || r == '\n' || r == '\r':
		case r == 'x':
			b.WriteRune('X')
		default:
			b.WriteRune(r)
		}
	}
	s := b.String()
	if !Valid(s) {
		return "", errs.New(errs.InvalidISBN, "isbn must be 10 or 13 digits").
			WithDetails(FieldDetails{Field: "isbn", Value: raw})
	}
	return s, nil
}

// Valid reports whether s is an already normalized ISBN.
func Valid(s string) bool {
	switch len(s) {
	case 13:
		return allDigits(s)
	case 10:
		last := s[9]
		return allDigits(s[:9]) && (last == 'X' || isDigit(last))
	}
	return false
}

// FromProvider picks the ISBN-13 out of a space separated "isbn10 isbn13" field,
// falling back to the ISBN-10.
func FromProvider(field string) string {
	var ten string
	for _, part := range strings.Fields(field) {
		s, err := Normalize(part)
		if err != nil {
			continue
		}
		if len(s) == 13 {
			return s
		}
		if ten == "" {
			ten = s
		}
	}
	return ten
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

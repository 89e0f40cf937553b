// Package validate holds the pure attribute validators and normalizers for
// identity requests. Functions here touch no I/O and keep no state; if a
// validator accepts a value, the matching normalizer never fails on it.
package validate

import (
	"strings"
	"unicode/utf8"

	"github.com/contaleve/identity-service/internal/core/domain"
)

const (
	minNameLen  = 2
	maxNameLen  = 100
	maxEmailLen = 254
	cpfLen      = 11
)

// Name checks that a display name has between 2 and 100 characters after
// trimming surrounding whitespace.
func Name(s string) error {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return domain.NewError(domain.KindInvalidName, "name is required")
	}
	if n := utf8.RuneCountInString(trimmed); n < minNameLen {
		return domain.NewError(domain.KindInvalidName, "name must have at least 2 characters")
	} else if n > maxNameLen {
		return domain.NewError(domain.KindInvalidName, "name is too long (max 100 characters)")
	}
	return nil
}

// NormalizeName trims the name and collapses internal whitespace runs to a
// single space.
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NationalID checks a Brazilian CPF: exactly 11 digits once formatting is
// stripped, not all identical, and both verification digits correct.
func NationalID(s string) error {
	digits := NormalizeNationalID(s)
	if digits == "" {
		return domain.NewError(domain.KindInvalidNationalID, "CPF is required")
	}
	if len(digits) != cpfLen {
		return domain.NewError(domain.KindInvalidNationalID, "CPF must have exactly 11 digits")
	}
	if allSame(digits) {
		return domain.NewError(domain.KindInvalidNationalID, "CPF cannot have all equal digits")
	}
	if !checkDigitValid(digits, 9) || !checkDigitValid(digits, 10) {
		return domain.NewError(domain.KindInvalidNationalID, "invalid CPF verification digits")
	}
	return nil
}

// NormalizeNationalID strips every non-digit character.
func NormalizeNationalID(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// checkDigitValid verifies the CPF check digit at position pos (9 or 10).
// The digit at pos is the weighted sum of the preceding pos digits with
// weights pos+1 down to 2, taken as (sum*10) mod 11, where 10 and 11 map to 0.
func checkDigitValid(digits string, pos int) bool {
	sum := 0
	for i := 0; i < pos; i++ {
		sum += int(digits[i]-'0') * (pos + 1 - i)
	}
	d := (sum * 10) % 11
	if d == 10 || d == 11 {
		d = 0
	}
	return d == int(digits[pos]-'0')
}

func allSame(digits string) bool {
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return true
}

// Email checks the local@domain shape: a non-empty local part and a domain
// part containing at least one dot, neither containing whitespace or '@'.
func Email(s string) error {
	if s == "" {
		return domain.NewError(domain.KindInvalidEmail, "email is required")
	}
	if len(s) > maxEmailLen {
		return domain.NewError(domain.KindInvalidEmail, "email is too long")
	}
	at := strings.Index(s, "@")
	if at <= 0 || at != strings.LastIndex(s, "@") {
		return domain.NewError(domain.KindInvalidEmail, "invalid email format")
	}
	local, dom := s[:at], s[at+1:]
	if dom == "" || !strings.Contains(dom, ".") {
		return domain.NewError(domain.KindInvalidEmail, "invalid email format")
	}
	if strings.ContainsAny(local, " \t\r\n") || strings.ContainsAny(dom, " \t\r\n") {
		return domain.NewError(domain.KindInvalidEmail, "invalid email format")
	}
	return nil
}

// NormalizeEmail trims surrounding whitespace and lower-cases the address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

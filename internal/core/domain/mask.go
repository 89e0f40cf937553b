package domain

import "strings"

// Masking helpers for diagnostics. Raw identifying attributes (full CPF,
// full email) must never appear in logs or error detail; these are the only
// acceptable forms.

// MaskIdentifier keeps the last four characters of a directory key.
func MaskIdentifier(s string) string {
	if len(s) <= 4 {
		return "***"
	}
	return "***" + s[len(s)-4:]
}

// MaskEmail keeps only the domain part of an email address.
func MaskEmail(s string) string {
	at := strings.LastIndex(s, "@")
	if at < 0 {
		return "***"
	}
	return "***@" + s[at+1:]
}

package identity

import "strings"

// LegalIDLength is the canonical length of a legal ID number.
const LegalIDLength = 11

// NormalizeLegalID strips everything but digits. ok is false unless exactly
// LegalIDLength digits remain.
func NormalizeLegalID(raw string) (canonical string, ok bool) {
	digits := digitsOnly(raw)
	return digits, len(digits) == LegalIDLength
}

// storedForm is how a stored value compares against canonical input. Legacy
// rows may carry separators; missing digits are never restored, so a
// truncated record cannot match.
func storedForm(stored string) string {
	return digitsOnly(stored)
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

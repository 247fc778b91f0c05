package provider

import "strings"

// GSM 03.38 default alphabet, basic and extended sets.
const (
	gsm7Basic = "@£$¥èéùìòÇ\nØø\rÅåΔ_ΦΓΛΩΠΨΣΘΞÆæßÉ !\"#¤%&'()*+,-./0123456789:;<=>?" +
		"¡ABCDEFGHIJKLMNOPQRSTUVWXYZÄÖÑÜ§¿abcdefghijklmnopqrstuvwxyzäöñüà"
	gsm7Extended = "^{}\\[~]|€"
)

// IsGSM7 reports whether every rune of s is representable in the GSM 03.38
// alphabet (basic or extended set).
func IsGSM7(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune(gsm7Basic, r) && !strings.ContainsRune(gsm7Extended, r) {
			return false
		}
	}
	return true
}

// SanitizeGSM7 rewrites s so it only contains GSM 03.38 sequences: extended
// characters get the escape prefix, anything unrepresentable becomes '?'.
func SanitizeGSM7(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for _, r := range s {
		switch {
		case strings.ContainsRune(gsm7Basic, r):
			b.WriteRune(r)
		case strings.ContainsRune(gsm7Extended, r):
			b.WriteByte(0x1B)
			b.WriteRune(r)
		default:
			b.WriteByte('?')
		}
	}

	return b.String()
}

// GSM7Length returns the septet count of s after sanitizing, counting
// escaped extended characters twice.
func GSM7Length(s string) int {
	n := 0
	for _, r := range s {
		if strings.ContainsRune(gsm7Extended, r) {
			n += 2
			continue
		}
		n++
	}
	return n
}

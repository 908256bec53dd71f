package cardcheck

import (
	"strings"
	"unicode"
)

const maxCardDigits = 19

// FormatNumber groups the digits of a card number in blocks of four,
// capped at 19 digits: "4111111111111111" -> "4111 1111 1111 1111".
func FormatNumber(raw string) string {
	digits := onlyDigits(raw)
	if len(digits) > maxCardDigits {
		digits = digits[:maxCardDigits]
	}

	var b strings.Builder
	for i := 0; i < len(digits); i++ {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteByte(digits[i])
	}
	return b.String()
}

// FormatExpiry renders up to four digits as MM/AA. The slash only appears
// once a third digit is typed.
func FormatExpiry(raw string) string {
	digits := onlyDigits(raw)
	if len(digits) > 4 {
		digits = digits[:4]
	}
	if len(digits) > 2 {
		return digits[:2] + "/" + digits[2:]
	}
	return digits
}

// NormalizeHolderName drops digits and upper-cases the first letter found,
// leaving everything else untouched.
func NormalizeHolderName(raw string) string {
	runes := []rune(strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return -1
		}
		return r
	}, raw))

	for i, r := range runes {
		if isNameLetter(r) {
			runes[i] = unicode.ToUpper(r)
			break
		}
	}
	return string(runes)
}

// isNameLetter matches the Latin and Latin-1 letter range accepted in names.
func isNameLetter(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= 0xC0 && r <= 0xFF)
}

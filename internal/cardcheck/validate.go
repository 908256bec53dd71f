package cardcheck

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	letterRegex       = regexp.MustCompile(`[A-Za-z\x{00C0}-\x{00FF}]`)
	installmentsRegex = regexp.MustCompile(`(?i)^\d+\s*x\s*de\s*R\$\s*[\d.,]+$`)
	whitespaceRegex   = regexp.MustCompile(`\s+`)
)

// ValidateNumber checks length (13 to 19 digits) and the Luhn checksum.
func ValidateNumber(raw string) *FieldError {
	digits := onlyDigits(raw)
	if digits == "" {
		return fieldErr(FieldNumber, KindMissing, "Número do cartão é obrigatório")
	}
	if len(digits) < 13 || len(digits) > 19 {
		return fieldErr(FieldNumber, KindInvalidFormat, "Número do cartão inválido")
	}
	if !Luhn(digits) {
		return fieldErr(FieldNumber, KindInvalidFormat, "Número do cartão inválido")
	}
	return nil
}

// Luhn reports whether a digit string passes the mod-10 checksum. Non-digit
// input is rejected.
func Luhn(digits string) bool {
	if digits == "" {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// ValidateExpiry checks an MM/AA expiry against the month of now. Years are
// read as 2000+AA.
func ValidateExpiry(raw string, now time.Time) *FieldError {
	digits := onlyDigits(raw)
	if digits == "" {
		return fieldErr(FieldExpiry, KindMissing, "Validade é obrigatória")
	}
	if len(digits) != 4 {
		return fieldErr(FieldExpiry, KindInvalidFormat, "Validade inválida")
	}

	month, _ := strconv.Atoi(digits[:2])
	yy, _ := strconv.Atoi(digits[2:])
	if month < 1 || month > 12 {
		return fieldErr(FieldExpiry, KindOutOfRange, "Mês da validade inválido")
	}

	year := 2000 + yy
	if year < now.Year() || (year == now.Year() && month < int(now.Month())) {
		return fieldErr(FieldExpiry, KindExpired, "Cartão vencido")
	}
	return nil
}

// ValidateCVV requires 4 digits for amex and 3 for every other brand,
// unknown brand included.
func ValidateCVV(raw string, brand Brand) *FieldError {
	digits := onlyDigits(raw)
	if digits == "" {
		return fieldErr(FieldCVV, KindMissing, "CVV é obrigatório")
	}
	want := 3
	if brand == BrandAmex {
		want = 4
	}
	if len(digits) != want {
		return fieldErr(FieldCVV, KindInvalidFormat, "CVV inválido")
	}
	return nil
}

// ValidateHolderName requires at least two words and at least one letter.
func ValidateHolderName(raw string) *FieldError {
	name := collapseSpaces(raw)
	if name == "" {
		return fieldErr(FieldHolderName, KindMissing, "Nome do titular é obrigatório")
	}
	if len(strings.Split(name, " ")) < 2 {
		return fieldErr(FieldHolderName, KindInvalidFormat, "Informe o nome completo (mín. duas palavras)")
	}
	if !letterRegex.MatchString(name) {
		return fieldErr(FieldHolderName, KindInvalidFormat, "Nome do titular inválido")
	}
	return nil
}

// ValidateInstallments checks the "<N> x de R$ <valor>" descriptor.
func ValidateInstallments(raw string) *FieldError {
	s := strings.TrimSpace(raw)
	if s == "" {
		return fieldErr(FieldInstallments, KindMissing, "Parcelamento é obrigatório")
	}
	if !installmentsRegex.MatchString(s) {
		return fieldErr(FieldInstallments, KindInvalidFormat, "Parcelamento inválido")
	}
	return nil
}

func collapseSpaces(s string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}

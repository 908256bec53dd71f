// Package cardcheck validates the payment-card form of the checkout screens:
// brand detection by IIN prefix, Luhn checksum, expiry, CVV, holder name and
// the installment descriptor. Every function is pure and safe to call on each
// keystroke.
package cardcheck

import (
	"strconv"
	"strings"
)

// Brand is the card network inferred from the leading digits.
type Brand string

const (
	BrandVisa       Brand = "visa"
	BrandMastercard Brand = "mastercard"
	BrandAmex       Brand = "amex"
	BrandElo        Brand = "elo"
	BrandHipercard  Brand = "hipercard"
)

// binRange is an inclusive range of integer prefixes.
type binRange struct {
	lo, hi int
}

func (r binRange) contains(v int) bool {
	return v >= r.lo && v <= r.hi
}

// Mastercard 2-series BINs, checked against the first 4 digits.
var mastercardNewRange = binRange{2221, 2720}

// Elo BIN table, checked against the first 6 digits. Illustrative subset,
// replace wholesale when the acquirer publishes a new table.
var eloRanges = []binRange{
	{401178, 401179},
	{431274, 431274},
	{451416, 451416},
	{457631, 457632},
	{504175, 504175},
	{506699, 506778},
	{509000, 509999},
	{627780, 627780},
	{636297, 636297},
	{636368, 636368},
	{650031, 650033},
	{650035, 650051},
	{650405, 650439},
	{650485, 650538},
	{650541, 650598},
	{650700, 650718},
	{650720, 650727},
	{650901, 650978},
	{651652, 651679},
	{655000, 655019},
	{655021, 655058},
}

// DetectBrand returns the brand of a possibly partial card number. The rules
// run in a fixed order and the first match wins, so anything starting with 4
// is always visa.
func DetectBrand(raw string) (Brand, bool) {
	digits := onlyDigits(raw)
	if digits == "" {
		return "", false
	}

	if strings.HasPrefix(digits, "4") {
		return BrandVisa, true
	}
	if p := prefixInt(digits, 2); p >= 51 && p <= 55 {
		return BrandMastercard, true
	}
	if mastercardNewRange.contains(prefixInt(digits, 4)) {
		return BrandMastercard, true
	}
	if strings.HasPrefix(digits, "34") || strings.HasPrefix(digits, "37") {
		return BrandAmex, true
	}
	if strings.HasPrefix(digits, "606282") || strings.HasPrefix(digits, "3841") {
		return BrandHipercard, true
	}

	bin := prefixInt(digits, 6)
	for _, r := range eloRanges {
		if r.contains(bin) {
			return BrandElo, true
		}
	}
	return "", false
}

// prefixInt parses up to n leading digits. A shorter input parses whatever is
// there, which never lands inside the wider ranges above.
func prefixInt(digits string, n int) int {
	if len(digits) > n {
		digits = digits[:n]
	}
	v, err := strconv.Atoi(digits)
	if err != nil {
		return -1
	}
	return v
}

func onlyDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

package cnpj

import (
	"strings"
)

const (
	Length = 14

	// HeadquartersOrder is the branch order RFB assigns to the matriz.
	HeadquartersOrder = "0001"
)

var (
	// RFB weights for the first verifying digit
	weights1 = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	// RFB weights for the second verifying digit
	weights2 = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// Digits strips every non-digit character, without padding.
func Digits(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for i := 0; i < len(input); i++ {
		if input[i] >= '0' && input[i] <= '9' {
			b.WriteByte(input[i])
		}
	}
	return b.String()
}

// Normalize strips punctuation and left-pads with zeros up to 14 digits.
// Inputs longer than 14 digits are returned as-is so IsValid can reject them.
func Normalize(input string) string {
	d := Digits(input)
	if len(d) >= Length {
		return d
	}
	return strings.Repeat("0", Length-len(d)) + d
}

func IsValid(input string) bool {
	c := Normalize(input)
	if len(c) != Length {
		return false
	}

	// Reject known invalid patterns that trick the math algorithm
	if hasAllSameDigits(c) {
		return false
	}

	dv := CheckDigits(c[:12])
	return c[12:] == dv
}

// IsEmptyLike reports whether the input carries no meaningful digits at all.
func IsEmptyLike(input string) bool {
	return strings.Trim(Digits(input), "0") == ""
}

// BranchOrder returns the 4-digit branch order (9th to 12th digits), or ""
// when fewer than 12 digits are available.
func BranchOrder(input string) string {
	d := Digits(input)
	if len(d) < 12 {
		return ""
	}
	return d[8:12]
}

// Root returns the 8-digit legal entity root, or "" when unavailable.
func Root(input string) string {
	d := Digits(input)
	if len(d) < 8 {
		return ""
	}
	return d[:8]
}

func IsHeadquarters(input string) bool {
	return BranchOrder(input) == HeadquartersOrder
}

func IsBranch(input string) bool {
	d := Digits(input)
	return len(d) == Length && BranchOrder(d) != HeadquartersOrder
}

// ToHeadquarters derives the matriz CNPJ for any filial of the same root.
// With fewer than 12 digits there is nothing to derive from, so the digits
// are returned unchanged.
func ToHeadquarters(input string) string {
	d := Digits(input)
	if len(d) < 12 {
		return d
	}
	base := d[:8] + HeadquartersOrder
	return base + CheckDigits(base)
}

// CheckDigits computes both verifying digits for a 12-digit base.
func CheckDigits(base12 string) string {
	if len(base12) != 12 || Digits(base12) != base12 {
		return ""
	}
	d1 := calculateDigit(base12, weights1)
	d2 := calculateDigit(base12+string(rune('0'+d1)), weights2)
	return string([]byte{byte('0' + d1), byte('0' + d2)})
}

// Format renders a valid-length CNPJ as 00.000.000/0000-00.
func Format(input string) string {
	d := Normalize(input)
	if len(d) != Length {
		return d
	}
	return d[0:2] + "." + d[2:5] + "." + d[5:8] + "/" + d[8:12] + "-" + d[12:]
}

func hasAllSameDigits(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

func calculateDigit(base string, weights []int) int {
	sum := 0
	for i, weight := range weights {
		// Convert ASCII character to integer ('5' -> 5)
		digit := int(base[i] - '0')
		sum += digit * weight
	}

	remainder := sum % 11
	if remainder < 2 {
		return 0
	}
	return 11 - remainder
}

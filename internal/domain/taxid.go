package domain

import "strings"

var (
	cpfWeights  = []int{11, 10, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjWeights = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// IsValidCPF checks the two mod-11 check digits of an 11-digit CPF.
// Punctuation is ignored.
func IsValidCPF(s string) bool {
	d := digitsOf(s)
	if len(d) != 11 || allSame(d) {
		return false
	}
	return checkDigit(d[:9], cpfWeights[1:]) == d[9] &&
		checkDigit(d[:10], cpfWeights) == d[10]
}

// IsValidCNPJ checks the two mod-11 check digits of a 14-digit CNPJ.
func IsValidCNPJ(s string) bool {
	d := digitsOf(s)
	if len(d) != 14 || allSame(d) {
		return false
	}
	return checkDigit(d[:12], cnpjWeights[1:]) == d[12] &&
		checkDigit(d[:13], cnpjWeights) == d[13]
}

// NormalizeTaxID strips everything but digits.
func NormalizeTaxID(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func checkDigit(d []int, weights []int) int {
	sum := 0
	for i, v := range d {
		sum += v * weights[i]
	}
	rem := sum % 11
	if rem < 2 {
		return 0
	}
	return 11 - rem
}

func digitsOf(s string) []int {
	out := make([]int, 0, len(s))
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			out = append(out, int(r-'0'))
		case r == '.' || r == '-' || r == '/' || r == ' ':
		default:
			return nil
		}
	}
	return out
}

func allSame(d []int) bool {
	for _, v := range d[1:] {
		if v != d[0] {
			return false
		}
	}
	return true
}

// Package numfmt renders float64 values as plain fixed-point decimal
// strings. The standard library's shortest representation switches to
// exponent notation for very large and very small magnitudes ("5e-07",
// "1e+21"); numfmt expands that notation into full digit strings so values
// can be embedded in formats and protocols that do not accept exponents.
package numfmt

import (
	"strconv"
	"strings"
)

// Format renders f as a fixed-point decimal string with no exponent
// marker. The digits are exactly those of the shortest round-trip
// representation, so strconv.ParseFloat(Format(f), 64) returns f for
// every finite f, and negative zero keeps its sign. Non-finite values
// render as "NaN", "+Inf" and "-Inf", the spellings strconv.ParseFloat
// accepts.
func Format(f float64) string {
	return FormatDecimal(strconv.FormatFloat(f, 'g', -1, 64))
}

// FormatDecimal expands exponent notation in an already-rendered numeric
// string into fixed-point form. Strings without an exponent marker are
// returned unchanged. The input is expected to be well-formed, i.e. the
// output of one of the strconv.FormatFloat formats; FormatDecimal does
// not validate it.
func FormatDecimal(s string) string {
	i := strings.IndexAny(s, "eE")
	if i < 0 {
		return s
	}

	mantissa, expPart := s[:i], s[i+1:]
	exp, err := strconv.Atoi(expPart)
	if err != nil {
		return s
	}

	sign := ""
	if strings.HasPrefix(mantissa, "-") {
		sign, mantissa = "-", mantissa[1:]
	} else if strings.HasPrefix(mantissa, "+") {
		mantissa = mantissa[1:]
	}
	digits := strings.Replace(mantissa, ".", "", 1)

	// The exponent counts from the first mantissa digit, so shift is the
	// number of digits that fall before the decimal point.
	shift := exp + 1

	switch {
	case shift <= 0:
		return sign + "0." + strings.Repeat("0", -shift) + digits
	case shift >= len(digits):
		return sign + digits + strings.Repeat("0", shift-len(digits))
	default:
		return sign + digits[:shift] + "." + digits[shift:]
	}
}

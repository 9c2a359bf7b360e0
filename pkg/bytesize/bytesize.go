// Package bytesize formats and parses byte counts in the compact
// 1024-based notation used throughout the dataset catalogs ("9.8G",
// "512.0K", "10GB").
package bytesize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Binary size constants.
const (
	B int64 = 1 << (10 * iota)
	K
	M
	G
	T
	P
	E
)

var symbols = []string{"B", "K", "M", "G", "T", "P", "E", "Z", "Y"}

// Format renders n with one decimal digit, e.g. Format(150) == "150.0B"
// and Format(10*G) == "10.0G".
func Format(n int64) string {
	return FormatDigits(n, 1)
}

// FormatDigits renders n with the given number of decimal digits. The
// unit is chosen so the mantissa lies in [1, 1024), except below 1K
// where bytes are shown as-is.
func FormatDigits(n int64, digits int) string {
	v := float64(n)
	av := math.Abs(v)
	e := 0
	for av >= 1024 && e < len(symbols)-1 {
		v /= 1024
		av /= 1024
		e++
	}
	return strconv.FormatFloat(v, 'f', digits, 64) + symbols[e]
}

// Parse reads a size in the forms accepted on the command line: a bare
// integer ("1048576"), or a number with a unit suffix with or without a
// trailing B ("10G", "10GB", "1.5M"). Units are 1024-based.
func Parse(s string) (int64, error) {
	t := strings.TrimSpace(s)
	cut := len(t)
	for i, r := range t {
		if (r < '0' || r > '9') && r != '.' && r != '+' && r != '-' {
			cut = i
			break
		}
	}
	num := strings.TrimSpace(t[:cut])
	unit := strings.ToUpper(strings.TrimSpace(t[cut:]))
	if num == "" {
		return 0, fmt.Errorf("bytesize: invalid size %q", s)
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("bytesize: invalid size %q", s)
	}
	mult, ok := multiplier(unit)
	if !ok {
		return 0, fmt.Errorf("bytesize: unknown unit %q in %q", unit, s)
	}
	v := f * mult
	if v < 0 || v > math.MaxInt64 {
		return 0, fmt.Errorf("bytesize: size %q out of range", s)
	}
	return int64(math.Round(v)), nil
}

func multiplier(unit string) (float64, bool) {
	if unit == "" {
		return 1, true
	}
	u := strings.TrimSuffix(unit, "B")
	if u == "" {
		return 1, true
	}
	for e, sym := range symbols {
		if u == sym {
			return math.Pow(1024, float64(e)), true
		}
	}
	return 0, false
}

// Package formatting converts between human-readable and machine values:
// byte sizes such as "10MB", and JSON embedded in model output.
package formatting

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ErrInvalidSize is returned by ParseBytes for malformed sizes.
var ErrInvalidSize = errors.New("invalid byte size")

// Units are binary: 1KB is 1024 bytes.
var sizeUnits = [...]string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}

// FormatBytes renders n with the largest unit that keeps the value at or
// above 1, for example 1536 as "1.5 KB". Byte counts print without decimals.
func FormatBytes(n int64, precision int) string {
	if n < 1024 {
		return strconv.FormatInt(n, 10) + " B"
	}

	v := float64(n)
	unit := 0
	for v >= 1024 && unit < len(sizeUnits)-1 {
		v /= 1024
		unit++
	}
	return strconv.FormatFloat(v, 'f', max(precision, 0), 64) + " " + sizeUnits[unit]
}

// ParseBytes reads sizes such as "512", "10MB", "1.5 gb", or "64KiB". A bare
// number is bytes.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	split := strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '.'
	})

	num, unit := s, ""
	if split >= 0 {
		num, unit = s[:split], strings.TrimSpace(s[split:])
	}
	if num == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	value, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	unit = strings.ToUpper(strings.Replace(unit, "iB", "B", 1))
	mult := int64(1)
	for _, u := range sizeUnits {
		if u == unit || (unit == "" && u == "B") {
			return int64(value * float64(mult)), nil
		}
		mult *= 1024
	}
	return 0, fmt.Errorf("%w: unknown unit %q", ErrInvalidSize, unit)
}

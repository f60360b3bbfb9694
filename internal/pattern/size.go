package pattern

import (
	"fmt"
	"strconv"
	"strings"
)

var sizeUnits = map[string]int64{
	"":  1,
	"B": 1,
	"K": 1 << 10,
	"M": 1 << 20,
	"G": 1 << 30,
	"T": 1 << 40,
}

// ParseSize parses a human-readable byte count such as "512", "64K",
// "1.5M" or "2GiB". Units are powers of 1024 and case-insensitive; a
// trailing "/s" is accepted so rates can be written naturally.
func ParseSize(s string) (int64, error) {
	orig := s
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "/S")
	s = strings.TrimSuffix(s, "IB")
	if len(s) > 1 && strings.HasSuffix(s, "B") {
		if _, ok := sizeUnits[s[len(s)-2:len(s)-1]]; ok {
			s = s[:len(s)-1]
		}
	}
	if s == "" {
		return 0, fmt.Errorf("invalid size: %q", orig)
	}

	unit := ""
	if last := s[len(s)-1:]; last[0] < '0' || last[0] > '9' {
		unit = last
		s = s[:len(s)-1]
	}
	mult, ok := sizeUnits[unit]
	if !ok || s == "" {
		return 0, fmt.Errorf("invalid size: %q", orig)
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative size: %q", orig)
		}
		return n * mult, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid size: %q", orig)
	}
	return int64(f * float64(mult)), nil
}

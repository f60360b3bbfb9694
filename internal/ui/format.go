package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bamsammich/fanout/internal/stats"
)

var rateUnits = [...]string{"B/s", "KB/s", "MB/s", "GB/s", "TB/s", "PB/s"}

// FormatRate formats a bytes-per-second rate with three significant
// digits at most.
func FormatRate(bytesPerSec float64) string {
	if bytesPerSec <= 0 {
		return "0 B/s"
	}
	i := 0
	for bytesPerSec >= 1024 && i < len(rateUnits)-1 {
		bytesPerSec /= 1024
		i++
	}
	switch {
	case bytesPerSec < 10:
		return fmt.Sprintf("%.2f %s", bytesPerSec, rateUnits[i])
	case bytesPerSec < 100:
		return fmt.Sprintf("%.1f %s", bytesPerSec, rateUnits[i])
	default:
		return fmt.Sprintf("%.0f %s", bytesPerSec, rateUnits[i])
	}
}

// FormatETA formats a remaining duration; unknown (<= 0) is "--".
func FormatETA(d time.Duration) string {
	if d <= 0 {
		return "--"
	}
	return clock(d)
}

// FormatDuration formats elapsed time.
func FormatDuration(d time.Duration) string {
	return clock(max(d, 0))
}

func clock(d time.Duration) string {
	d = d.Round(time.Second)
	h, m, s := int(d/time.Hour), int(d/time.Minute)%60, int(d/time.Second)%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// FormatCount formats an integer with thousands separators.
func FormatCount(n int64) string {
	digits := strconv.FormatInt(n, 10)
	sign := ""
	if n < 0 {
		sign, digits = "-", digits[1:]
	}
	var b strings.Builder
	b.WriteString(sign)
	for i, c := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// FormatBytes formats a byte count.
func FormatBytes(b int64) string {
	return stats.FormatBytes(b)
}

// meter renders a fixed-width text gauge for plain output.
func meter(pct float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(min(max(pct, 0), 1) * float64(width))
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

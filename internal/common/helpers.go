// Package common contains small utilities shared across the project:
// currency formatting and human-readable durations for bot replies.
package common

import (
	"fmt"
	"time"
)

// FormatAmount renders an amount with the guild's currency symbol and
// thousands separators. Example: FormatAmount(2350, "💰") → "💰 2,350".
func FormatAmount(amount int64, symbol string) string {
	return fmt.Sprintf("%s %s", symbol, FormatNumber(amount))
}

// FormatNumber formats a number with comma thousands separators.
// Example: FormatNumber(1234567) → "1,234,567".
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s,%03d", FormatNumber(n/1000), n%1000)
}

// FormatDuration renders a duration the way cooldown messages need it:
// "45 seconds", "3 minutes", "2h 15m".
func FormatDuration(d time.Duration) string {
	secs := int64(d.Round(time.Second).Seconds())
	if secs < 0 {
		secs = 0
	}
	switch {
	case secs < 60:
		return fmt.Sprintf("%d %s", secs, plural(secs, "second"))
	case secs < 3600:
		m := secs / 60
		return fmt.Sprintf("%d %s", m, plural(m, "minute"))
	default:
		h := secs / 3600
		m := (secs % 3600) / 60
		if m == 0 {
			return fmt.Sprintf("%d %s", h, plural(h, "hour"))
		}
		return fmt.Sprintf("%dh %dm", h, m)
	}
}

func plural(n int64, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

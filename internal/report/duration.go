package report

import (
	"fmt"
	"strings"
	"time"
)

const (
	minutesPerHour = 60
	minutesPerDay  = 24 * minutesPerHour
	minutesPerWeek = 7 * minutesPerDay
)

// FormatDuration renders whole minutes as text:
//
//	45    -> "45m"
//	95    -> "1h 35m"
//	1440  -> "1 Tag"
//	3000  -> "2 Tage 2h"
//	10080 -> "1 Woche"
//
// Zero remainders are omitted. Negative input renders as "0m".
func FormatDuration(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	if minutes < minutesPerHour {
		return fmt.Sprintf("%dm", minutes)
	}

	hours := minutes / minutesPerHour
	restMinutes := minutes % minutesPerHour
	if minutes < minutesPerDay {
		if restMinutes > 0 {
			return fmt.Sprintf("%dh %dm", hours, restMinutes)
		}
		return fmt.Sprintf("%dh", hours)
	}

	days := hours / 24
	restHours := hours % 24

	var parts []string
	if minutes < minutesPerWeek {
		parts = append(parts, dayText(days))
	} else {
		weeks := days / 7
		parts = append(parts, weekText(weeks))
		if restDays := days % 7; restDays > 0 {
			parts = append(parts, dayText(restDays))
		}
	}
	if restHours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", restHours))
	}
	if restMinutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", restMinutes))
	}
	return strings.Join(parts, " ")
}

func dayText(n int) string {
	if n > 1 {
		return fmt.Sprintf("%d Tage", n)
	}
	return fmt.Sprintf("%d Tag", n)
}

func weekText(n int) string {
	if n > 1 {
		return fmt.Sprintf("%d Wochen", n)
	}
	return fmt.Sprintf("%d Woche", n)
}

// SessionMinutes is the one duration policy for sessions: elapsed whole
// minutes, at least 1 whenever end is after start, 0 otherwise.
func SessionMinutes(start, end time.Time) int {
	elapsed := end.Sub(start)
	if elapsed <= 0 {
		return 0
	}
	m := int(elapsed / time.Minute)
	if m < 1 {
		return 1
	}
	return m
}

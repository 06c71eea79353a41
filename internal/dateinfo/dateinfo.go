// Package dateinfo turns the raw, not-necessarily-valid date strings carried
// by catalog events into display-ready descriptors. Resolution is a pure
// function of the raw string and an injected "now", so callers (and tests)
// control the clock.
package dateinfo

import (
	"math"
	"strconv"
	"time"
)

type DateInfo struct {
	IsValid       bool   `json:"isValid"`
	FormattedDate string `json:"formattedDate"`
	FormattedTime string `json:"formattedTime"`
	RelativeTime  string `json:"relativeTime"`
	IsPast        bool   `json:"isPast"`
	IsToday       bool   `json:"isToday"`
	IsTomorrow    bool   `json:"isTomorrow"`
	DaysUntil     int    `json:"daysUntil"`
}

// Safe placeholders for unparsable input. IsPast stays false on purpose so
// purchase actions are not incorrectly blocked by a broken date.
const (
	placeholderDate = "Fecha por confirmar"
	placeholderTime = "--:--"
)

// layouts tried in order. The upstream is loose about what it stores in the
// date column, so we accept the common ISO-ish variants.
var layouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Resolve never panics and never returns an error: malformed input degrades
// to IsValid=false with placeholder display strings.
func Resolve(raw string, now time.Time) DateInfo {
	parsed, ok := Parse(raw)

	if !ok {
		return DateInfo{
			IsValid:       false,
			FormattedDate: placeholderDate,
			FormattedTime: placeholderTime,
		}
	}

	days := int(math.Floor(parsed.Sub(now).Hours() / 24))

	return DateInfo{
		IsValid:       true,
		FormattedDate: parsed.Format("02/01/2006"),
		FormattedTime: parsed.Format("15:04"),
		RelativeTime:  relative(days),
		IsPast:        parsed.Before(now),
		IsToday:       days == 0,
		IsTomorrow:    days == 1,
		DaysUntil:     days,
	}
}

// Parse attempts the known layouts in order. Shared with the catalog engine
// so date filtering and date display agree on what counts as a valid date.
func Parse(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}

	for _, layout := range layouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// relative buckets the day delta into the coarse human phrases the consumer
// UI renders: hoy / mañana / en N días / hace N días.
func relative(days int) string {
	switch {
	case days == 0:
		return "hoy"
	case days == 1:
		return "mañana"
	case days > 1:
		return "en " + strconv.Itoa(days) + " días"
	case days == -1:
		return "hace 1 día"
	default:
		return "hace " + strconv.Itoa(-days) + " días"
	}
}

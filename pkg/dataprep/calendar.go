package dataprep

import (
	"math"
	"strings"
	"time"

	"effpred/pkg/schema"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04",
}

// Calendar holds the date parts derived from a timestamp. Valid is false when
// the timestamp could not be parsed.
type Calendar struct {
	Year, Month, Day, Hour int
	Valid                  bool
}

// ParseCalendar never fails; an unparsable timestamp yields an invalid Calendar.
func ParseCalendar(ts string) Calendar {
	ts = strings.TrimSpace(ts)
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, ts)
		if err != nil {
			continue
		}
		return Calendar{Year: t.Year(), Month: int(t.Month()), Day: t.Day(), Hour: t.Hour(), Valid: true}
	}
	return Calendar{}
}

// Value returns the named part, or NaN if the calendar is invalid.
func (c Calendar) Value(part string) float64 {
	if !c.Valid {
		return math.NaN()
	}
	switch part {
	case schema.Year:
		return float64(c.Year)
	case schema.Month:
		return float64(c.Month)
	case schema.Day:
		return float64(c.Day)
	case schema.Hour:
		return float64(c.Hour)
	}
	return math.NaN()
}

package series

import (
	"fmt"
	"strings"
	"time"

	"stockchart/internal/interval"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses an upstream timestamp. Zone-less values are read as UTC.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// Window selects the points of a chronological series that fall inside the
// requested interval's lookback. When the calendar filter selects nothing the
// most recent FallbackPoints points are returned instead, or the whole series
// when it is no longer than that.
func Window(points []EnrichedPoint, intervalID string, now time.Time) []EnrichedPoint {
	opt := interval.Lookup(intervalID)
	if !opt.Bounded() {
		return points
	}

	cutoff := now.Add(-opt.Lookback())
	filtered := make([]EnrichedPoint, 0, len(points))
	for _, point := range points {
		ts, ok := ParseTimestamp(point.Timestamp)
		if !ok || ts.Before(cutoff) {
			continue
		}
		filtered = append(filtered, point)
	}
	if len(filtered) > 0 {
		return filtered
	}

	if opt.FallbackPoints == interval.Unbounded || len(points) <= opt.FallbackPoints {
		return points
	}
	return points[len(points)-opt.FallbackPoints:]
}

// StateString is the machine-readable "{interval}:{count}" window marker.
func StateString(intervalID string, count int) string {
	return fmt.Sprintf("%s:%d", intervalID, count)
}

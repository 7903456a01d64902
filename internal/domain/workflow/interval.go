package workflow

import "time"

// WireTimeLayout is the zone-less datetime format used by the portal API.
// Values are interpreted as UTC end-to-end.
const WireTimeLayout = "2006-01-02T15:04:05"

// ParseWireTime parses a wire datetime string as UTC.
func ParseWireTime(s string) (time.Time, error) {
	return time.ParseInLocation(WireTimeLayout, s, time.UTC)
}

// FormatWireTime renders t in the wire format, normalised to UTC.
func FormatWireTime(t time.Time) string {
	return t.UTC().Format(WireTimeLayout)
}

// Interval is a half-open time interval [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Validate rejects zero-length and inverted intervals.
func (iv Interval) Validate() error {
	if !iv.Start.Before(iv.End) {
		return ErrInvalidInterval
	}
	return nil
}

// Overlaps reports whether two half-open intervals intersect. Touching
// boundaries (a.End == b.Start) do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

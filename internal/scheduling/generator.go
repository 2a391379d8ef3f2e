package scheduling

import (
	"regexp"
	"time"
)

// Visit duration bounds, in minutes.
const (
	MinVisitMinutes = 5
	MaxVisitMinutes = 480
)

// Home visits pause for a fixed midday break, 12:00-13:00 UTC. Generated
// intervals never overlap it, even when the requested window straddles it.
const (
	lunchStartMinute = 12 * 60
	lunchEndMinute   = 13 * 60
)

var (
	dateRE  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	clockRE = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)
)

// GenerateDailySlots divides [startTime, endTime) on the given day into
// contiguous intervals of exactly durationMin minutes, dropping a trailing
// partial interval and excising the midday break before slicing. Pure and
// deterministic; the result is ordered by start time.
func GenerateDailySlots(dateISO, startTime, endTime string, durationMin int) ([]Interval, error) {
	if !dateRE.MatchString(dateISO) {
		return nil, ErrInvalidDate
	}
	day, err := time.Parse("2006-01-02", dateISO)
	if err != nil {
		return nil, ErrInvalidDate
	}

	startMin, ok := parseClock(startTime)
	if !ok {
		return nil, ErrInvalidTimeFormat
	}
	endMin, ok := parseClock(endTime)
	if !ok {
		return nil, ErrInvalidTimeFormat
	}

	if endMin <= startMin {
		return nil, ErrInvalidWindow
	}
	if durationMin < MinVisitMinutes || durationMin > MaxVisitMinutes {
		return nil, ErrInvalidDuration
	}

	type segment struct{ from, to int }
	segments := []segment{
		{from: startMin, to: min(endMin, lunchStartMinute)},
		{from: max(startMin, lunchEndMinute), to: endMin},
	}

	var out []Interval
	for _, seg := range segments {
		if seg.from >= seg.to {
			continue
		}
		for cursor := seg.from; cursor+durationMin <= seg.to; cursor += durationMin {
			out = append(out, Interval{
				Start: day.Add(time.Duration(cursor) * time.Minute),
				End:   day.Add(time.Duration(cursor+durationMin) * time.Minute),
			})
		}
	}

	return out, nil
}

// parseClock returns minutes since midnight for a strict 24h HH:mm value.
func parseClock(s string) (int, bool) {
	if !clockRE.MatchString(s) {
		return 0, false
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	return h*60 + m, true
}

package schedule

import "strconv"

// TimeToMinutes converts a zero-padded "HH:MM" wall-clock time to minutes
// since midnight. Malformed input maps to 0.
func TimeToMinutes(t string) int {
	if len(t) != 5 || t[2] != ':' {
		return 0
	}
	h, _ := strconv.Atoi(t[:2])
	m, _ := strconv.Atoi(t[3:])
	return h*60 + m
}

// Overlaps reports whether the half-open intervals [startA, endA) and
// [startB, endB) overlap, each bound in minutes since midnight. Adjacent
// intervals (endA == startB) do not overlap, and an empty interval never
// overlaps itself. Callers are responsible for start < end.
func Overlaps(startA, endA, startB, endB int) bool {
	return startA < endB && startB < endA
}

// TimeRangesOverlap is Overlaps on "HH:MM" wall-clock bounds.
func TimeRangesOverlap(startA, endA, startB, endB string) bool {
	return Overlaps(TimeToMinutes(startA), TimeToMinutes(endA), TimeToMinutes(startB), TimeToMinutes(endB))
}

package schedule

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ratiba/core"
)

var (
	timeOrderTag  = "timeorder"
	timeOrderText = "end time must be after start time"
)

func init() {
	core.Validate.RegisterStructValidation(timeWindowStructValidation, NewBooking{}, NewAvailability{})
	core.RegisterCustomTranslation(timeOrderTag, timeOrderText)
}

// timeWindowStructValidation checks that a window ends strictly after it
// starts. Zero-padded "HH:MM" strings order lexicographically, so plain
// string comparison is exact; cross-midnight spans are rejected by the
// same check.
func timeWindowStructValidation(sl validator.StructLevel) {
	var start, end string
	switch w := sl.Current().Interface().(type) {
	case NewBooking:
		start, end = w.StartTime, w.EndTime
	case NewAvailability:
		start, end = w.StartTime, w.EndTime
	}
	if start == "" || end == "" {
		return // covered by the required+timehhmm field tags
	}
	if end <= start {
		sl.ReportError(end, "end_time", "EndTime", timeOrderTag, "")
	}
}

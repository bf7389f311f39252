package schedule

import "testing"

func TestTimeToMinutes(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"00:00", 0},
		{"09:00", 540},
		{"09:30", 570},
		{"23:59", 1439},
		{"", 0},
		{"9:00", 0},
		{"0900", 0},
	}
	for _, tt := range tests {
		if got := TimeToMinutes(tt.in); got != tt.want {
			t.Errorf("TimeToMinutes(%q) = %d; want %d", tt.in, got, tt.want)
		}
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name                       string
		startA, endA, startB, endB int
		want                       bool
	}{
		{"partial overlap", 540, 600, 570, 630, true},
		{"containment", 540, 660, 570, 600, true},
		{"identical", 540, 600, 540, 600, true},
		{"one minute overlap", 540, 600, 599, 660, true},
		{"adjacent", 540, 600, 600, 660, false},
		{"disjoint", 540, 600, 720, 780, false},
		{"empty interval inside", 540, 540, 500, 600, true},
		{"empty interval at boundary", 540, 540, 540, 600, false},
		{"empty interval with itself", 540, 540, 540, 540, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.startA, tt.endA, tt.startB, tt.endB); got != tt.want {
				t.Errorf("Overlaps() = %v; want %v", got, tt.want)
			}
			// overlap is symmetric
			if got := Overlaps(tt.startB, tt.endB, tt.startA, tt.endA); got != tt.want {
				t.Errorf("Overlaps() (swapped) = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestTimeRangesOverlap(t *testing.T) {
	if !TimeRangesOverlap("09:00", "10:00", "09:30", "10:30") {
		t.Error("expected overlap")
	}
	if TimeRangesOverlap("09:00", "10:00", "10:00", "11:00") {
		t.Error("adjacent ranges must not overlap")
	}
}

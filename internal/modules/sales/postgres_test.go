package sales

import (
	"testing"
	"time"
)

func TestFormatInvoiceNumber(t *testing.T) {
	day := time.Date(2026, 8, 30, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		seq  int
		want string
	}{
		{"first sale of the day", day, 1, "INV-20260830-0001"},
		{"padded to four digits", day, 42, "INV-20260830-0042"},
		{"last four digit sequence", day, 9999, "INV-20260830-9999"},
		{"grows past the padding", day, 10000, "INV-20260830-10000"},
		{"next day carries its own date", day.AddDate(0, 0, 1), 1, "INV-20260831-0001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatInvoiceNumber(tt.now, tt.seq); got != tt.want {
				t.Errorf("formatInvoiceNumber(%s, %d) = %s, want %s",
					tt.now.Format("2006-01-02"), tt.seq, got, tt.want)
			}
		})
	}
}

func TestDayWindowResetsAtMidnight(t *testing.T) {
	lateNight := time.Date(2026, 8, 30, 23, 59, 59, 0, time.UTC)

	start, end := dayWindow(lateNight)
	if !start.Equal(time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %s, want midnight of the same day", start)
	}
	if !end.Equal(time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("end = %s, want the following midnight", end)
	}
	if !lateNight.Before(end) || lateNight.Before(start) {
		t.Error("a sale at 23:59:59 must fall inside its own day's window")
	}

	// One second later the counter starts over in a fresh window.
	nextStart, _ := dayWindow(lateNight.Add(time.Second))
	if !nextStart.Equal(end) {
		t.Errorf("next day's window starts at %s, want %s", nextStart, end)
	}
}

package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAddDays_MonthBoundary(t *testing.T) {
	jan31 := Date(2025, time.January, 31)
	assert.Equal(t, Date(2025, time.February, 1), AddDays(jan31, 1))
}

func TestAddDays_YearBoundary(t *testing.T) {
	dec31 := Date(2024, time.December, 31)
	assert.Equal(t, Date(2025, time.January, 1), AddDays(dec31, 1))
}

func TestPreviousDay_FirstOfMonth(t *testing.T) {
	mar1 := Date(2025, time.March, 1)
	assert.Equal(t, Date(2025, time.February, 28), PreviousDay(mar1))

	// Leap year.
	mar1leap := Date(2024, time.March, 1)
	assert.Equal(t, Date(2024, time.February, 29), PreviousDay(mar1leap))
}

func TestDateOf_StripsTimeOfDay(t *testing.T) {
	late := time.Date(2025, time.June, 15, 23, 59, 59, 0, time.UTC)
	early := time.Date(2025, time.June, 15, 0, 0, 1, 0, time.UTC)
	assert.True(t, DateOf(late).Equal(DateOf(early)))
	assert.True(t, SameDay(late, early))
}

func TestIsNextDay(t *testing.T) {
	tests := []struct {
		name string
		a, b time.Time
		want bool
	}{
		{"consecutive", Date(2025, time.May, 1), Date(2025, time.May, 2), true},
		{"month boundary", Date(2025, time.January, 31), Date(2025, time.February, 1), true},
		{"same day", Date(2025, time.May, 1), Date(2025, time.May, 1), false},
		{"two apart", Date(2025, time.May, 1), Date(2025, time.May, 3), false},
		{"backwards", Date(2025, time.May, 2), Date(2025, time.May, 1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNextDay(tt.a, tt.b))
		})
	}
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 0, DaysBetween(Date(2025, time.May, 1), Date(2025, time.May, 1)))
	assert.Equal(t, 1, DaysBetween(Date(2025, time.January, 31), Date(2025, time.February, 1)))
	assert.Equal(t, -1, DaysBetween(Date(2025, time.February, 1), Date(2025, time.January, 31)))
	assert.Equal(t, 365, DaysBetween(Date(2025, time.January, 1), Date(2026, time.January, 1)))
	assert.Equal(t, 366, DaysBetween(Date(2024, time.January, 1), Date(2025, time.January, 1)))
}

func TestDateKey(t *testing.T) {
	assert.Equal(t, "2025-02-01", DateKey(time.Date(2025, time.February, 1, 18, 30, 0, 0, time.UTC)))
}

func TestParseDate_RoundTrip(t *testing.T) {
	d, err := ParseDate("2025-02-01")
	assert.NoError(t, err)
	assert.Equal(t, Date(2025, time.February, 1), d)
}

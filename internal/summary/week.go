package summary

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"weekhours/internal/model"
)

// DayTotal is the summed duration of one working day.
type DayTotal struct {
	Date    string  `json:"date"`
	DayName string  `json:"day_name"`
	Minutes int     `json:"minutes"`
	Hours   float64 `json:"hours"`
}

// WorkWeek returns Monday through Friday of the week containing ref, at
// midnight UTC.
func WorkWeek(ref time.Time) ([]time.Time, error) {
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	monday := day.AddDate(0, 0, -((int(day.Weekday()) + 6) % 7))

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.DAILY,
		Dtstart:   monday,
		Count:     5,
		Byweekday: []rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR},
	})
	if err != nil {
		return nil, fmt.Errorf("summary: work week rule: %w", err)
	}
	return r.All(), nil
}

// DailyBreakdown totals dated events for each working day of ref's week.
func DailyBreakdown(events []model.ParsedEvent, ref time.Time) ([]DayTotal, error) {
	days, err := WorkWeek(ref)
	if err != nil {
		return nil, err
	}
	sums := make(map[string]int, len(days))
	for _, ev := range events {
		if countable(ev) && ev.HasDate() {
			sums[ev.Date] += ev.Duration
		}
	}
	out := make([]DayTotal, 0, len(days))
	for _, d := range days {
		key := d.Format(time.DateOnly)
		out = append(out, DayTotal{
			Date:    key,
			DayName: d.Weekday().String(),
			Minutes: sums[key],
			Hours:   Hours(sums[key]),
		})
	}
	return out, nil
}

package ics

import (
	"bytes"
	"errors"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "weekhours/internal/log"
	"weekhours/internal/model"
)

// Decode reads VEVENTs back into events, converting times into loc. It is
// the inverse of Export for files previously written by this program, and
// accepts any calendar with timed events.
//
// Events without DTSTART are logged and skipped; the rest are kept.
func Decode(body []byte, loc *time.Location) ([]model.ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}
	if loc == nil {
		loc = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	events := make([]model.ParsedEvent, 0)
	for _, vev := range cal.Events() {
		ev, err := decodeEvent(vev, loc)
		if err != nil {
			appLog.Error("ics vevent decode failed", err, "uid", vev.Id())
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func decodeEvent(vev *ical.VEvent, loc *time.Location) (model.ParsedEvent, error) {
	start, err := vev.GetStartAt()
	if err != nil {
		return model.ParsedEvent{}, err
	}
	end, err := vev.GetEndAt()
	if err != nil {
		end = start
	}
	start = start.In(loc)
	end = end.In(loc)

	ev := model.ParsedEvent{
		Date:      start.Format(time.DateOnly),
		DayOfWeek: int(start.Weekday()),
		DayName:   start.Weekday().String(),
		StartTime: start.Format("15:04"),
		EndTime:   end.Format("15:04"),
		Duration:  int(end.Sub(start).Minutes()),
	}
	if ev.Duration < 0 {
		ev.Duration = 0
	}
	if p := vev.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Title = p.Value
	}
	if p := vev.GetProperty(ical.ComponentPropertyDescription); p != nil {
		ev.Comment = p.Value
	}
	return ev, nil
}

// Package ics converts parsed events to and from iCalendar payloads.
package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	appLog "weekhours/internal/log"
	"weekhours/internal/model"
)

const productID = "-//weekhours//week summary//EN"

// uidNamespace scopes the name-based UUIDs of exported events.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://weekhours.local/ics"))

// Export renders dated events as a VCALENDAR. Event wall-clock times are
// interpreted in loc (time.Local when nil). Undated events are skipped.
func Export(events []model.ParsedEvent, loc *time.Location, stamp time.Time) ([]byte, error) {
	if loc == nil {
		loc = time.Local
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	skipped := 0
	seen := make(map[string]int)
	for _, ev := range events {
		start, err := startOf(ev, loc)
		if err != nil {
			skipped++
			continue
		}
		end := start.Add(time.Duration(ev.Duration) * time.Minute)

		key := eventKey(ev)
		vev := cal.AddEvent(eventUID(key, seen[key]))
		seen[key]++
		vev.SetDtStampTime(stamp)
		vev.SetStartAt(start)
		vev.SetEndAt(end)
		vev.SetSummary(ev.Title)
		if ev.Comment != "" {
			vev.SetDescription(ev.Comment)
		}
	}

	if skipped > 0 {
		appLog.Debug("ics export skipped undated events", "count", skipped)
	}
	return []byte(cal.Serialize()), nil
}

func startOf(ev model.ParsedEvent, loc *time.Location) (time.Time, error) {
	if !ev.HasDate() {
		return time.Time{}, fmt.Errorf("ics: event %q has no date", ev.Title)
	}
	return time.ParseInLocation("2006-01-02 15:04", ev.Date+" "+ev.StartTime, loc)
}

func eventKey(ev model.ParsedEvent) string {
	return ev.Date + "|" + ev.StartTime + "|" + ev.Title
}

// eventUID depends only on the event's date, start and title plus n, its
// occurrence among identical events, so repeated exports of the same week
// update rather than duplicate calendar entries even when other events come
// and go.
func eventUID(key string, n int) string {
	name := fmt.Sprintf("%s|%d", key, n)
	return uuid.NewSHA1(uidNamespace, []byte(name)).String() + "@weekhours"
}

// Package chip extracts structured meeting records from the text of
// week-view calendar chips.
//
// Chip text varies by locale and by how much room the chip had on screen:
//
//	Mon 25 September 2023 from 9:00 to 10:30 Weekly Sync + Planning
//	lundi 2 octobre 2023 de 22h00 à 1h00 Projet Nuit
//	9:00am to 10:00am, Weekly Sync, Accepted, September 25, 2023
//
// Parse is a pure function of its inputs and the reference time used for
// missing years. Chips that cannot be parsed, or that describe breaks,
// lunches, declined invitations or month placeholders, produce no record.
package chip

import (
	"strings"
	"time"
	"unicode"

	appLog "weekhours/internal/log"
	"weekhours/internal/model"
)

type skipReason string

const (
	skipDeclined    skipReason = "declined"
	skipNoTimeRange skipReason = "no_time_range"
	skipExcluded    skipReason = "excluded"
	skipBadDate     skipReason = "unresolvable_date"
)

// Parse converts chips into events, preserving input order. ref supplies
// the year for dates written without one.
func Parse(chips []model.Chip, ref time.Time) []model.ParsedEvent {
	events := make([]model.ParsedEvent, 0, len(chips))
	for i, c := range chips {
		ev, reason := parseChip(c, ref)
		if reason != "" {
			appLog.Debug("chip skipped", "index", i, "reason", string(reason))
			continue
		}
		events = append(events, ev)
	}
	return events
}

// ParseOne parses a single chip. The boolean is false when the chip yields
// no event.
func ParseOne(c model.Chip, ref time.Time) (model.ParsedEvent, bool) {
	ev, reason := parseChip(c, ref)
	return ev, reason == ""
}

func parseChip(c model.Chip, ref time.Time) (model.ParsedEvent, skipReason) {
	if declinedHint(c) {
		return model.ParsedEvent{}, skipDeclined
	}
	text := normalizeSpace(c.Text)
	if hasDeclinedPrefix(text) {
		return model.ParsedEvent{}, skipDeclined
	}

	tr, ok := matchTimeRange(text)
	if !ok {
		return model.ParsedEvent{}, skipNoTimeRange
	}

	title, comment := splitTitle(tr.tail)
	if excludedTitle(title) {
		return model.ParsedEvent{}, skipExcluded
	}

	date, status := findDate(text, tr.at, tr.tailAt, ref)
	if status == dateUnresolvable {
		return model.ParsedEvent{}, skipBadDate
	}

	start := toMinutes(tr.start)
	end := toMinutes(tr.end)
	ev := model.ParsedEvent{
		Title:     title,
		Comment:   comment,
		DayOfWeek: model.NoDay,
		StartTime: formatClock(start),
		EndTime:   formatClock(end),
		Duration:  duration(start, end),
	}
	if status == dateFound {
		ev.Date = date.Format(time.DateOnly)
		ev.DayOfWeek = int(date.Weekday())
		ev.DayName = date.Weekday().String()
	}
	return ev, ""
}

// normalizeSpace folds non-ASCII spaces (NBSP, narrow NBSP as used before
// "am"/"pm") to plain spaces so the patterns see a single kind of blank.
// Newlines are kept; the title is cut at the first one.
func normalizeSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII && unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, s)
}

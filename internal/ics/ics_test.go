package ics

import (
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weekhours/internal/model"
)

var cest = time.FixedZone("CEST", 2*60*60)

func TestExportDecode(t *testing.T) {
	events := []model.ParsedEvent{
		{Title: "Weekly Sync", Comment: "Planning", Date: "2023-09-25", DayOfWeek: 1, DayName: "Monday", StartTime: "09:00", EndTime: "10:30", Duration: 90},
		{Title: "Undated", DayOfWeek: model.NoDay, StartTime: "11:00", EndTime: "12:00", Duration: 60},
		{Title: "Projet Nuit", Date: "2023-10-02", DayOfWeek: 1, DayName: "Monday", StartTime: "22:00", EndTime: "01:00", Duration: 180},
	}
	stamp := time.Date(2023, 10, 3, 8, 0, 0, 0, time.UTC)

	body, err := Export(events, cest, stamp)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, "BEGIN:VCALENDAR")
	assert.Contains(t, text, "SUMMARY:Weekly Sync")
	assert.Contains(t, text, "DTSTART:20230925T070000Z")
	assert.Equal(t, 2, strings.Count(text, "BEGIN:VEVENT"))
	assert.NotContains(t, text, "Undated")

	decoded, err := Decode(body, cest)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.Equal(t, events[0], decoded[0])
	assert.Equal(t, "Projet Nuit", decoded[1].Title)
	assert.Equal(t, 180, decoded[1].Duration)
	assert.Equal(t, "22:00", decoded[1].StartTime)
	assert.Equal(t, "01:00", decoded[1].EndTime)
}

func TestExport_StableUIDs(t *testing.T) {
	events := []model.ParsedEvent{{Title: "A", Date: "2023-09-25", StartTime: "09:00", Duration: 30}}
	stamp := time.Date(2023, 10, 3, 8, 0, 0, 0, time.UTC)
	a, err := Export(events, time.UTC, stamp)
	require.NoError(t, err)
	b, err := Export(events, time.UTC, stamp)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestEventUID(t *testing.T) {
	key := eventKey(model.ParsedEvent{Title: "A", Date: "2023-09-25", StartTime: "09:00"})
	assert.Equal(t, eventUID(key, 0), eventUID(key, 0))
	assert.NotEqual(t, eventUID(key, 0), eventUID(key, 1))
	assert.True(t, strings.HasSuffix(eventUID(key, 0), "@weekhours"))
}

func TestExport_UIDsSurviveEarlierChanges(t *testing.T) {
	a := model.ParsedEvent{Title: "A", Date: "2023-09-25", StartTime: "09:00", Duration: 30}
	b := model.ParsedEvent{Title: "B", Date: "2023-09-26", StartTime: "10:00", Duration: 30}
	extra := model.ParsedEvent{Title: "New", Date: "2023-09-25", StartTime: "08:00", Duration: 15}

	uids := func(events ...model.ParsedEvent) map[string][]string {
		body, err := Export(events, time.UTC, time.Date(2023, 10, 3, 8, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		cal, err := ical.ParseCalendar(strings.NewReader(string(body)))
		require.NoError(t, err)
		out := map[string][]string{}
		for _, ev := range cal.Events() {
			title := ev.GetProperty(ical.ComponentPropertySummary).Value
			out[title] = append(out[title], ev.GetProperty(ical.ComponentPropertyUniqueId).Value)
		}
		return out
	}

	before := uids(a, b)
	after := uids(extra, a, b)
	assert.Equal(t, before["A"], after["A"])
	assert.Equal(t, before["B"], after["B"])

	twice := uids(a, a)["A"]
	require.Len(t, twice, 2)
	assert.NotEqual(t, twice[0], twice[1])
	assert.Equal(t, before["A"][0], twice[0])
}

func TestDecode_Empty(t *testing.T) {
	_, err := Decode(nil, time.UTC)
	assert.Error(t, err)
}

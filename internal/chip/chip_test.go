package chip

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weekhours/internal/model"
)

var ref = time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)

func texts(ss ...string) []model.Chip {
	out := make([]model.Chip, 0, len(ss))
	for _, s := range ss {
		out = append(out, model.Chip{Text: s})
	}
	return out
}

func TestParse_EnglishChipWithNotes(t *testing.T) {
	events := Parse(texts("Mon 25 September 2023 from 9:00 to 10:30 Weekly Sync + Planning"), ref)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "Weekly Sync", ev.Title)
	assert.Equal(t, "Planning", ev.Comment)
	assert.Equal(t, 90, ev.Duration)
	assert.Equal(t, "2023-09-25", ev.Date)
	assert.Equal(t, "09:00", ev.StartTime)
	assert.Equal(t, "10:30", ev.EndTime)
	assert.Equal(t, 1, ev.DayOfWeek)
	assert.Equal(t, "Monday", ev.DayName)
}

func TestParse_FrenchOvernight(t *testing.T) {
	events := Parse(texts("lundi 2 octobre 2023 de 22h00 à 1h00 Projet Nuit"), ref)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "Projet Nuit", ev.Title)
	assert.Equal(t, 180, ev.Duration)
	assert.Equal(t, "22:00", ev.StartTime)
	assert.Equal(t, "2023-10-02", ev.Date)
	assert.Equal(t, "Monday", ev.DayName)
}

func TestParse_LocaleSymmetry(t *testing.T) {
	en := Parse(texts("Mon 25 September 2023 from 14:15 to 15:45 Review"), ref)
	fr := Parse(texts("lundi 25 septembre 2023 de 14 h 15 à 15h45 Review"), ref)
	require.Len(t, en, 1)
	require.Len(t, fr, 1)
	assert.Equal(t, en[0], fr[0])
}

func TestParse_DateAndDurationGrid(t *testing.T) {
	weekdays := []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	for month := time.January; month <= time.December; month++ {
		for _, day := range []int{1, 9, 15, 28} {
			d := time.Date(2023, month, day, 0, 0, 0, 0, time.UTC)
			h1, m1, h2, m2 := 8, 5, 9+day%5, 40
			text := fmt.Sprintf("%s %d %s %d from %d:%02d to %d:%02d Sync",
				weekdays[d.Weekday()], day, month.String(), 2023, h1, m1, h2, m2)

			events := Parse(texts(text), ref)
			require.Len(t, events, 1, text)
			assert.Equal(t, d.Format("2006-01-02"), events[0].Date, text)
			assert.Equal(t, (h2*60+m2)-(h1*60+m1), events[0].Duration, text)
			assert.Equal(t, int(d.Weekday()), events[0].DayOfWeek, text)
		}
	}
}

func TestParse_TimeFormats(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		start     string
		durationM int
	}{
		{name: "colon", text: "from 9:00 to 10:00 Meeting", start: "09:00", durationM: 60},
		{name: "french h", text: "de 9h00 à 10h00 Réunion", start: "09:00", durationM: 60},
		{name: "spaced h", text: "de 9 h 00 à 10 h 30 Réunion", start: "09:00", durationM: 90},
		{name: "pm markers", text: "from 1pm to 2:30pm Demo", start: "13:00", durationM: 90},
		{name: "spaced pm", text: "from 11:30 AM to 12:15 PM Demo", start: "11:30", durationM: 45},
		{name: "midnight am", text: "from 12am to 1am Deploy", start: "00:00", durationM: 60},
		{name: "noon pm", text: "from 12pm to 1pm Demo", start: "12:00", durationM: 60},
		{name: "hyphen", text: "10:00 - 11:00 Standup", start: "10:00", durationM: 60},
		{name: "en dash", text: "10:00–11:15 Standup", start: "10:00", durationM: 75},
		{name: "hours only", text: "from 9 to 11 Workshop", start: "09:00", durationM: 120},
		{name: "comma after range", text: "9:00am to 10:00am, Weekly Sync, Accepted", start: "09:00", durationM: 60},
		{name: "narrow nbsp", text: "9:00\u202fam to 10:00\u202fam, Weekly Sync", start: "09:00", durationM: 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := ParseOne(model.Chip{Text: tt.text}, ref)
			require.True(t, ok)
			assert.Equal(t, tt.start, ev.StartTime)
			assert.Equal(t, tt.durationM, ev.Duration)
		})
	}
}

func TestParse_NoTimeRange(t *testing.T) {
	events := Parse(texts("", "Weekly Sync", "Mon 25 September 2023", "   \n "), ref)
	assert.Empty(t, events)
}

func TestParse_Exclusions(t *testing.T) {
	tests := []string{
		"from 12:00 to 13:00 Lunch Break",
		"Mon 25 September 2023 from 12:00 to 13:00 lunch",
		"de 12h00 à 13h30 Déjeuner équipe",
		"from 15:00 to 15:15 Coffee break",
		"de 10h00 à 10h15 Pause café",
		"from 9:00 to 10:00 Planning de rendez-vous",
		"from 9:00 to 17:00 Lunch & Learn Planning Session",
		"from 9:00 to 10:00 September",
		"from 9:00 to 10:00 septembre 2024",
		"from 9:00 to 10:00 DÉCEMBRE",
	}
	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			_, ok := ParseOne(model.Chip{Text: text}, ref)
			assert.False(t, ok)
		})
	}
}

func TestParse_MonthWordInsideTitleIsKept(t *testing.T) {
	ev, ok := ParseOne(model.Chip{Text: "from 9:00 to 10:00 May planning review"}, ref)
	require.True(t, ok)
	assert.Equal(t, "May planning review", ev.Title)
}

func TestParse_Declined(t *testing.T) {
	wellFormed := "Mon 25 September 2023 from 9:00 to 10:30 Weekly Sync"
	tests := []struct {
		name string
		chip model.Chip
	}{
		{name: "text prefix", chip: model.Chip{Text: "Declined: " + wellFormed}},
		{name: "text prefix lowercase", chip: model.Chip{Text: "  declined: " + wellFormed}},
		{name: "flag", chip: model.Chip{Text: wellFormed, Declined: true}},
		{name: "aria label", chip: model.Chip{Text: wellFormed, AriaLabel: "Weekly Sync, you DECLINED this event"}},
		{name: "flag on unparseable text", chip: model.Chip{Text: "garbage", Declined: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, Parse([]model.Chip{tt.chip}, ref))
		})
	}
}

func TestParse_CommentSplit(t *testing.T) {
	ev, ok := ParseOne(model.Chip{Text: "from 9:00 to 10:00 Meeting + Notes"}, ref)
	require.True(t, ok)
	assert.Equal(t, "Meeting", ev.Title)
	assert.Equal(t, "Notes", ev.Comment)

	ev, ok = ParseOne(model.Chip{Text: "from 9:00 to 10:00 Meeting, Room 4 + Notes"}, ref)
	require.True(t, ok)
	assert.Equal(t, "Meeting", ev.Title)
	assert.Equal(t, "", ev.Comment)

	ev, ok = ParseOne(model.Chip{Text: "de 13h00 à 14h30 Rendez-vous + Plan"}, ref)
	require.True(t, ok)
	assert.Equal(t, "Rendez-vous", ev.Title)
	assert.Equal(t, "Plan", ev.Comment)
	assert.Equal(t, 90, ev.Duration)
}

func TestParse_UnknownMonthDropsEvent(t *testing.T) {
	assert.Empty(t, Parse(texts("5 agosto 2023 from 9:00 to 10:00 Meeting"), ref))
	assert.Empty(t, Parse(texts("9:00am to 10:00am, Sync, Accepted, 5 agosto 2023"), ref))
}

func TestParse_HourOnlyEndIsNotADay(t *testing.T) {
	for _, text := range []string{"from 9 to 10 May planning", "de 9 à 10 mars Projet"} {
		t.Run(text, func(t *testing.T) {
			ev, ok := ParseOne(model.Chip{Text: text}, ref)
			require.True(t, ok)
			assert.False(t, ev.HasDate())
			assert.Equal(t, model.NoDay, ev.DayOfWeek)
			assert.Equal(t, 60, ev.Duration)
		})
	}
}

func TestParse_FallbackMonthAbbreviations(t *testing.T) {
	tests := []struct {
		text string
		date string
	}{
		{text: "Tue 5 sept 2023 from 9:00 to 10:00 Sync", date: "2023-09-05"},
		{text: "Tue 5 sept. 2023 from 9:00 to 10:00 Sync", date: "2023-09-05"},
		{text: "Tue 5 Sep 2023 from 9:00 to 10:00 Sync", date: "2023-09-05"},
		{text: "mar. 12 déc de 9h00 à 10h00 Sync", date: "2024-12-12"},
		{text: "Oct 3, 2023 from 9:00 to 10:00 Sync", date: "2023-10-03"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			ev, ok := ParseOne(model.Chip{Text: tt.text}, ref)
			require.True(t, ok)
			assert.Equal(t, tt.date, ev.Date)
		})
	}
}

func TestParse_MissingYearUsesReference(t *testing.T) {
	ev, ok := ParseOne(model.Chip{Text: "Thu 3 October from 10:00 to 11:00 Sync"}, ref)
	require.True(t, ok)
	assert.Equal(t, "2024-10-03", ev.Date)
	assert.Equal(t, 4, ev.DayOfWeek)
	assert.Equal(t, "Thursday", ev.DayName)
}

func TestParse_MonthThenDay(t *testing.T) {
	ev, ok := ParseOne(model.Chip{Text: "9:00am to 10:00am, Weekly Sync, Accepted, September 25, 2023"}, ref)
	require.True(t, ok)
	assert.Equal(t, "Weekly Sync", ev.Title)
	assert.Equal(t, "2023-09-25", ev.Date)

	ev, ok = ParseOne(model.Chip{Text: "Monday, September 25, 2023, 9am – 10am Sync"}, ref)
	require.True(t, ok)
	assert.Equal(t, "2023-09-25", ev.Date)
	assert.Equal(t, "Sync", ev.Title)
}

func TestParse_NoDateInText(t *testing.T) {
	ev, ok := ParseOne(model.Chip{Text: "from 9:00 to 10:00 Meeting"}, ref)
	require.True(t, ok)
	assert.False(t, ev.HasDate())
	assert.Equal(t, "", ev.Date)
	assert.Equal(t, model.NoDay, ev.DayOfWeek)
	assert.Equal(t, "", ev.DayName)
}

func TestParse_InvalidDayInHeadDropsEvent(t *testing.T) {
	assert.Empty(t, Parse(texts("31 February 2023 from 9:00 to 10:00 Sync"), ref))
}

func TestParse_OrderPreserved(t *testing.T) {
	chips := texts(
		"from 9:00 to 10:00 Alpha",
		"from 12:00 to 13:00 Lunch",
		"nothing here",
		"from 10:00 to 11:00 Beta",
		"from 9:00 to 10:00 Alpha",
		"5 agosto 2023 from 9:00 to 10:00 Gamma",
		"from 14:00 to 14:30 Delta",
	)
	events := Parse(chips, ref)

	titles := make([]string, 0, len(events))
	for _, ev := range events {
		titles = append(titles, ev.Title)
	}
	assert.Equal(t, []string{"Alpha", "Beta", "Alpha", "Delta"}, titles)
}

func TestParse_TotalOverHostileInput(t *testing.T) {
	long := strings.Repeat("from 9:00 to ", 5000) + "10:00 X"
	chips := []model.Chip{
		{Text: long},
		{Text: "\xff\xfe from 9:00 to 10:00 Bytes"},
		{Text: "from 99:99 to 00:00 Weird"},
		{Text: "from 9:00 to 10:00 •"},
	}
	assert.NotPanics(t, func() { Parse(chips, ref) })
	for _, ev := range Parse(chips, ref) {
		assert.GreaterOrEqual(t, ev.Duration, 0)
	}
	assert.Empty(t, Parse(nil, ref))
}

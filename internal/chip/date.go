package chip

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var englishMonths = [12]string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

var frenchMonths = [12]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// monthNumbers maps lowercase English and French month names to 1..12.
var monthNumbers = func() map[string]time.Month {
	m := make(map[string]time.Month, 24)
	for i := range englishMonths {
		m[englishMonths[i]] = time.Month(i + 1)
		m[frenchMonths[i]] = time.Month(i + 1)
	}
	return m
}()

func allMonthNames() []string {
	names := make([]string, 0, 24)
	names = append(names, englishMonths[:]...)
	return append(names, frenchMonths[:]...)
}

var (
	dayMonthRE = regexp.MustCompile(`(?i)\b(\d{1,2})\b\s+([a-zéû]+)\.?[,\s]*(\d{4})?`)
	monthDayRE = regexp.MustCompile(`(?i)\b([a-zéû]+)\.?\s+(\d{1,2})\b[,\s]*(\d{4})?`)
)

// dateCandidate is one date-shaped substring found in chip text.
type dateCandidate struct {
	raw   string
	day   string
	month string
	year  string
}

func dayMonth(m []string) dateCandidate {
	return dateCandidate{raw: m[0], day: m[1], month: m[2], year: m[3]}
}

func monthDay(m []string) dateCandidate {
	return dateCandidate{raw: m[0], day: m[2], month: m[1], year: m[3]}
}

type dateStatus int

const (
	dateNone dateStatus = iota
	dateFound
	dateUnresolvable
)

// findDate looks for a date outside the time range. The text before the
// range (head) is tried first; a date found there must resolve or the chip is
// dropped. Otherwise the text after the range (tail) is scanned and only
// candidates with a known month name are accepted, since the tail also holds
// the title. A tail candidate that carries a year is a date either way and
// must resolve too.
func findDate(text string, headEnd, tailStart int, ref time.Time) (time.Time, dateStatus) {
	if c, ok := firstCandidate(text[:headEnd]); ok {
		if t, ok := c.resolve(ref); ok {
			return t, dateFound
		}
		if t, ok := fallbackDate(c.raw, ref); ok {
			return t, dateFound
		}
		return time.Time{}, dateUnresolvable
	}

	tail := text[tailStart:]
	var cands []dateCandidate
	for _, m := range dayMonthRE.FindAllStringSubmatch(tail, -1) {
		cands = append(cands, dayMonth(m))
	}
	for _, m := range monthDayRE.FindAllStringSubmatch(tail, -1) {
		cands = append(cands, monthDay(m))
	}
	for _, c := range cands {
		if t, ok := c.resolve(ref); ok {
			return t, dateFound
		}
	}
	for _, c := range cands {
		if c.year == "" {
			continue
		}
		if t, ok := fallbackDate(c.raw, ref); ok {
			return t, dateFound
		}
		return time.Time{}, dateUnresolvable
	}
	return time.Time{}, dateNone
}

// firstCandidate tries day-then-month before month-then-day.
func firstCandidate(s string) (dateCandidate, bool) {
	if m := dayMonthRE.FindStringSubmatch(s); m != nil {
		return dayMonth(m), true
	}
	if m := monthDayRE.FindStringSubmatch(s); m != nil {
		return monthDay(m), true
	}
	return dateCandidate{}, false
}

// resolve builds the date from the month table. Missing years default to
// ref's year. Out-of-range days do not resolve.
func (c dateCandidate) resolve(ref time.Time) (time.Time, bool) {
	month, ok := monthNumbers[strings.ToLower(c.month)]
	if !ok {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(c.day)
	if err != nil {
		return time.Time{}, false
	}
	year := ref.Year()
	if c.year != "" {
		if year, err = strconv.Atoi(c.year); err != nil {
			return time.Time{}, false
		}
	}
	return validDate(year, month, day)
}

func validDate(year int, month time.Month, day int) (time.Time, bool) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// fallbackLayouts are tried in order against an unrecognized date substring.
var fallbackLayouts = []struct {
	layout  string
	hasYear bool
}{
	{"2 January 2006", true},
	{"2 Jan 2006", true},
	{"January 2 2006", true},
	{"Jan 2 2006", true},
	{"2 January", false},
	{"2 Jan", false},
	{"January 2", false},
	{"Jan 2", false},
}

// shortMonthAliases rewrites common abbreviations, French ones included,
// into the three-letter forms time.Parse understands.
var shortMonthAliases = strings.NewReplacer(
	"sept", "sep",
	"janv", "jan",
	"févr", "feb",
	"fév", "feb",
	"avr", "apr",
	"juil", "jul",
	"déc", "dec",
)

// fallbackDate is the generic parse used when the month token is not in
// the name table.
func fallbackDate(raw string, ref time.Time) (time.Time, bool) {
	s := strings.ToLower(raw)
	s = strings.NewReplacer(",", " ", ".", " ").Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	s = shortMonthAliases.Replace(s)
	for _, fl := range fallbackLayouts {
		t, err := time.Parse(fl.layout, s)
		if err != nil {
			continue
		}
		if !fl.hasYear {
			return validDate(ref.Year(), t.Month(), t.Day())
		}
		return t, true
	}
	return time.Time{}, false
}

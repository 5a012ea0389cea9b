// Package summary aggregates parsed events into per-meeting and per-project
// totals, the way the weekly report and the CSV exports present them.
package summary

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"weekhours/internal/model"
)

// Filter selects the whole week or a single working day.
type Filter string

const (
	FilterWeek      Filter = "week"
	FilterMonday    Filter = "monday"
	FilterTuesday   Filter = "tuesday"
	FilterWednesday Filter = "wednesday"
	FilterThursday  Filter = "thursday"
	FilterFriday    Filter = "friday"
)

var filterDays = map[Filter]time.Weekday{
	FilterMonday:    time.Monday,
	FilterTuesday:   time.Tuesday,
	FilterWednesday: time.Wednesday,
	FilterThursday:  time.Thursday,
	FilterFriday:    time.Friday,
}

// ParseFilter validates a filter name. Empty means the whole week.
func ParseFilter(s string) (Filter, error) {
	f := Filter(strings.ToLower(strings.TrimSpace(s)))
	if f == "" || f == FilterWeek {
		return FilterWeek, nil
	}
	if _, ok := filterDays[f]; ok {
		return f, nil
	}
	return "", fmt.Errorf("summary: unknown filter %q", s)
}

// Label is the display name of the filter ("Monday", "Week").
func (f Filter) Label() string {
	if d, ok := filterDays[f]; ok {
		return d.String()
	}
	return "Week"
}

// Matches reports whether ev falls inside the filter.
func (f Filter) Matches(ev model.ParsedEvent) bool {
	d, ok := filterDays[f]
	if !ok {
		return true
	}
	return ev.DayOfWeek == int(d)
}

// Row is one meeting title with its summed duration.
type Row struct {
	Title   string  `json:"title"`
	Minutes int     `json:"minutes"`
	Hours   float64 `json:"hours"`
	Project string  `json:"project"`
}

// ProjectRow is one project with its summed duration.
type ProjectRow struct {
	Project string  `json:"project"`
	Minutes int     `json:"minutes"`
	Hours   float64 `json:"hours"`
}

// Hours converts minutes to hours rounded to two decimals.
func Hours(minutes int) float64 {
	return math.Round(float64(minutes)/60*100) / 100
}

func countable(ev model.ParsedEvent) bool {
	return ev.Title != "" && ev.Duration != 0
}

// orderedSums keeps first-seen key order so that equal totals sort stably.
type orderedSums struct {
	keys []string
	sums map[string]int
}

func newOrderedSums() *orderedSums {
	return &orderedSums{sums: make(map[string]int)}
}

func (o *orderedSums) add(key string, minutes int) {
	if _, ok := o.sums[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.sums[key] += minutes
}

// sorted returns keys by total descending, ties in first-seen order.
func (o *orderedSums) sorted() []string {
	keys := append([]string(nil), o.keys...)
	sort.SliceStable(keys, func(i, j int) bool {
		return o.sums[keys[i]] > o.sums[keys[j]]
	})
	return keys
}

// Totals sums durations per exact title for events inside the filter.
// Events without a title or duration are ignored.
func Totals(events []model.ParsedEvent, f Filter) []Row {
	sums := newOrderedSums()
	for _, ev := range events {
		if !countable(ev) || !f.Matches(ev) {
			continue
		}
		sums.add(ev.Title, ev.Duration)
	}
	rows := make([]Row, 0, len(sums.keys))
	for _, title := range sums.sorted() {
		m := sums.sums[title]
		rows = append(rows, Row{Title: title, Minutes: m, Hours: Hours(m)})
	}
	return rows
}

// ProjectHours sums durations per project for titles present in mapping.
func ProjectHours(events []model.ParsedEvent, f Filter, mapping map[string]string) []ProjectRow {
	sums := newOrderedSums()
	for _, ev := range events {
		if !countable(ev) || !f.Matches(ev) {
			continue
		}
		project := mapping[ev.Title]
		if project == "" {
			continue
		}
		sums.add(project, ev.Duration)
	}
	rows := make([]ProjectRow, 0, len(sums.keys))
	for _, p := range sums.sorted() {
		m := sums.sums[p]
		rows = append(rows, ProjectRow{Project: p, Minutes: m, Hours: Hours(m)})
	}
	return rows
}

// EventsWithTitle returns the events whose title equals title exactly.
func EventsWithTitle(events []model.ParsedEvent, title string, f Filter) []model.ParsedEvent {
	var out []model.ParsedEvent
	for _, ev := range events {
		if ev.Title == title && f.Matches(ev) {
			out = append(out, ev)
		}
	}
	return out
}

package model

// Chip is one raw calendar-event entry scraped from a week-view page.
// It is built fresh per scrape and consumed once by the parser.
type Chip struct {
	// Text is the visible chip text, e.g.
	// "Mon 25 September 2023 from 9:00 to 10:30 Weekly Sync + Planning".
	Text string `json:"text" yaml:"text"`

	// AriaLabel is the accessibility label of the chip, if any.
	AriaLabel string `json:"aria_label,omitempty" yaml:"aria_label,omitempty"`

	// Declined is the normalized decline signal. Scrapers compute it once
	// from whatever hints the page exposes (label wording, dataset status).
	Declined bool `json:"declined,omitempty" yaml:"declined,omitempty"`

	// Attributes carries any other raw attributes the scraper collected.
	// The parser does not interpret them.
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// NoDay is the DayOfWeek value of events whose text carried no date.
const NoDay = -1

// ParsedEvent is the structured record extracted from a single chip.
type ParsedEvent struct {
	Title   string `json:"title"`
	Comment string `json:"comment"`

	// Date is YYYY-MM-DD, or empty when the chip text had no date.
	Date string `json:"date"`
	// DayOfWeek is 0 (Sunday) through 6 (Saturday), or NoDay.
	DayOfWeek int    `json:"day_of_week"`
	DayName   string `json:"day_name"`

	// StartTime / EndTime are 24-hour HH:MM wall-clock values.
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`

	// Duration is in minutes and never negative; spans past midnight wrap.
	Duration int `json:"duration"`
}

// HasDate reports whether the event carries a resolved calendar date.
func (e ParsedEvent) HasDate() bool {
	return e.Date != ""
}

// Project groups meetings for time tracking.
type Project struct {
	Name  string `yaml:"name" json:"name"`
	Color string `yaml:"color" json:"color"`
	// Keywords auto-link meeting titles that contain any of them.
	Keywords []string `yaml:"keywords" json:"keywords"`
	// TaskID is the time-tracking task entries are booked against.
	TaskID string `yaml:"task_id" json:"task_id"`
}

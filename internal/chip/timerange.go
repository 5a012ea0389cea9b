package chip

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const minutesPerDay = 24 * 60

var (
	// timeRangeRE matches an optional connector word, a start time token, a
	// range separator, an end time token, and the rest of the line.
	// Captured time tokens keep their trailing whitespace.
	timeRangeRE = regexp.MustCompile(`(?i)(?:from|de)?\s*(\d{1,2}(?:(?::|\s*h\s*)\d{2})?\s*(?:[ap]m)?)\s*(?:à|to|[-–])\s*(\d{1,2}(?:(?::|\s*h\s*)\d{2})?\s*(?:[ap]m)?),?\s*(.+)`)

	timeTokenRE = regexp.MustCompile(`(\d{1,2})(?:(?::|\s*h\s*)(\d{2}))?\s*(am|pm)?`)
)

// timeRange is the raw result of a time-range match inside chip text.
type timeRange struct {
	start string
	end   string
	tail  string
	// at is the byte offset where the match begins; text before it is
	// where a leading date is looked for.
	at int
	// tailAt is the byte offset where the tail begins.
	tailAt int
}

func matchTimeRange(text string) (timeRange, bool) {
	loc := timeRangeRE.FindStringSubmatchIndex(text)
	if loc == nil {
		return timeRange{}, false
	}
	return timeRange{
		start:  text[loc[2]:loc[3]],
		end:    text[loc[4]:loc[5]],
		tail:   text[loc[6]:loc[7]],
		at:     loc[0],
		tailAt: loc[6],
	}, true
}

// toMinutes converts a time token ("9:00", "9h00", "9 h 00", "2:30pm") to
// minutes since midnight. Tokens without digits count as zero.
func toMinutes(token string) int {
	m := timeTokenRE.FindStringSubmatch(strings.ToLower(strings.TrimSpace(token)))
	if m == nil {
		return 0
	}
	h, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	mins := 0
	if m[2] != "" {
		mins, _ = strconv.Atoi(m[2])
	}
	switch m[3] {
	case "pm":
		if h != 12 {
			h += 12
		}
	case "am":
		if h == 12 {
			h = 0
		}
	}
	return h*60 + mins
}

// duration returns end-start in minutes, wrapping past midnight.
func duration(start, end int) int {
	d := end - start
	for d < 0 {
		d += minutesPerDay
	}
	return d
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", (minutes/60)%24, minutes%60)
}

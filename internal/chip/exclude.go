package chip

import (
	"regexp"
	"strings"

	"weekhours/internal/model"
)

// excludedSubstrings mark non-work chips. Matching is an unanchored
// substring test, so "Lunch & Learn" is excluded as well.
var excludedSubstrings = []string{
	"planning de rendez-vous",
	"lunch",
	"déjeuner",
	"break",
	"pause",
}

var placeholderRE = regexp.MustCompile(`^(?:` + strings.Join(allMonthNames(), "|") + `)(?:\s+\d{4})?$`)

// declinedHint reports whether side-channel data marks the chip as declined.
func declinedHint(c model.Chip) bool {
	if c.Declined {
		return true
	}
	return strings.Contains(strings.ToLower(c.AriaLabel), "declined")
}

func hasDeclinedPrefix(text string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(text)), "declined:")
}

// excludedTitle reports whether a cleaned title is a break, a lunch, a
// booking page, or a bare month placeholder.
func excludedTitle(title string) bool {
	lower := strings.ToLower(strings.TrimSpace(title))
	for _, s := range excludedSubstrings {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return placeholderRE.MatchString(lower)
}

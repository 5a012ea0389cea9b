package chip

import "strings"

// splitTitle turns the free-text tail of a chip into a display title and an
// optional comment. The comma cut runs before the "+" split, so a "+" that
// only appears after a comma never yields a comment.
func splitTitle(tail string) (title, comment string) {
	s := tail
	if i := strings.Index(s, "•"); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ','); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '+'); i >= 0 {
		comment = strings.TrimSpace(s[i+1:])
		s = s[:i]
	}
	return strings.TrimSpace(s), comment
}

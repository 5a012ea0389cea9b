package chip

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitTitle(t *testing.T) {
	tests := []struct {
		name    string
		tail    string
		title   string
		comment string
	}{
		{name: "plain", tail: "Weekly Sync", title: "Weekly Sync"},
		{name: "comment", tail: "Meeting + Notes", title: "Meeting", comment: "Notes"},
		{name: "comma first", tail: "Meeting, Room 4 + Notes", title: "Meeting"},
		{name: "comment before comma", tail: "Meeting + Notes, Room 4", title: "Meeting", comment: "Notes"},
		{name: "bullet", tail: "Sync • Accepted • Room 2", title: "Sync"},
		{name: "newline", tail: "Sync\nOrganizer: Ana", title: "Sync"},
		{name: "bullet before newline", tail: "Sync •\nmore", title: "Sync"},
		{name: "surrounding blanks", tail: "   Retro   ", title: "Retro"},
		{name: "empty comment", tail: "Retro +", title: "Retro"},
		{name: "only bullet", tail: "• x", title: ""},
		{name: "second plus stays in comment", tail: "A + B + C", title: "A", comment: "B + C"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, comment := splitTitle(tt.tail)
			assert.Equal(t, tt.title, title)
			assert.Equal(t, tt.comment, comment)
		})
	}
}

func TestExcludedTitle(t *testing.T) {
	excluded := []string{
		"Lunch", "team LUNCH", "Déjeuner", "Coffee break", "Pause", "Planning de rendez-vous",
		"January", "janvier", "August 2024", "août 2024", "  Décembre  ",
	}
	for _, s := range excluded {
		assert.True(t, excludedTitle(s), s)
	}
	kept := []string{"Weekly Sync", "January planning", "May 12", "Projet Nuit", "2024", ""}
	for _, s := range kept {
		assert.False(t, excludedTitle(s), s)
	}
}

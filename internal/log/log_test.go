package log

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel(" WARN "))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
	assert.Equal(t, LevelInfo, ParseLevel(""))
}

func TestFormatLine(t *testing.T) {
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	got := formatLine(ts, LevelInfo, "parsed", "count", 3, "title", "Weekly Sync", "dangling")
	assert.Equal(t, `2025-01-01T00:00:00Z [INFO] parsed count=3 title="Weekly Sync"`, got)
}

func TestFormatKVsSkipsNonStringKeys(t *testing.T) {
	assert.Equal(t, " b=2", formatKVs(1, "a", "b", 2))
	assert.Equal(t, " err=boom", formatKVs("err", errors.New("boom")))
}

func TestEnabled(t *testing.T) {
	defer SetLevel(LevelInfo)

	SetLevel(LevelWarn)
	assert.False(t, enabled(LevelDebug))
	assert.False(t, enabled(LevelInfo))
	assert.True(t, enabled(LevelWarn))
	assert.True(t, enabled(LevelError))

	SetLevel(LevelDebug)
	assert.True(t, enabled(LevelDebug))
}

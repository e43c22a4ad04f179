package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLanguageColor(t *testing.T) {
	assert.Equal(t, "#00ADD8", LanguageColor("Go"))
	assert.Equal(t, "#DA5B0B", LanguageColor("  Jupyter Notebook "))
	assert.Equal(t, defaultLanguageColor, LanguageColor("COBOL"))
	assert.Equal(t, defaultLanguageColor, LanguageColor(""))
}

func TestRelativeTimeFrom(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value string
		want  string
	}{
		{name: "empty", value: "", want: "Unknown"},
		{name: "not a timestamp", value: "yesterday-ish", want: "yesterday-ish"},
		{name: "rfc3339 hours ago", value: "2024-05-10T09:00:00Z", want: "3 hours ago"},
		{name: "date only", value: "2024-05-07", want: "3 days ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RelativeTimeFrom(tt.value, now))
		})
	}
}

func TestParseTime(t *testing.T) {
	got, ok := ParseTime("2024-05-10 08:30:00")
	assert.True(t, ok)
	assert.Equal(t, 8, got.Hour())

	_, ok = ParseTime("nope")
	assert.False(t, ok)
}

// Package format turns raw backend values into display strings.
package format

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const defaultLanguageColor = "#94a3b8"

var languageColors = map[string]string{
	"typescript":       "#3178c6",
	"javascript":       "#f1e05a",
	"python":           "#3572A5",
	"java":             "#b07219",
	"c#":               "#178600",
	"c++":              "#f34b7d",
	"go":               "#00ADD8",
	"rust":             "#dea584",
	"php":              "#4F5D95",
	"ruby":             "#701516",
	"swift":            "#F05138",
	"kotlin":           "#A97BFF",
	"html":             "#e34c26",
	"css":              "#563d7c",
	"shell":            "#89e051",
	"dockerfile":       "#384d54",
	"jupyter notebook": "#DA5B0B",
	"vue":              "#41b883",
	"svelte":           "#ff3e00",
}

// LanguageColor returns the GitHub linguist color for language, or a
// neutral slate for unknown languages.
func LanguageColor(language string) string {
	if c, ok := languageColors[strings.ToLower(strings.TrimSpace(language))]; ok {
		return c
	}
	return defaultLanguageColor
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime accepts the timestamp shapes the backend emits.
func ParseTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// RelativeTime renders value as "3 hours ago". Empty input renders as
// "Unknown"; input that is not a timestamp is returned unchanged.
func RelativeTime(value string) string {
	return RelativeTimeFrom(value, time.Now())
}

// RelativeTimeFrom is RelativeTime with an explicit "now".
func RelativeTimeFrom(value string, now time.Time) string {
	if strings.TrimSpace(value) == "" {
		return "Unknown"
	}
	t, ok := ParseTime(value)
	if !ok {
		return value
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

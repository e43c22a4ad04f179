package model

const (
	DefaultTextComplexity = 50
	MaxTextComplexity     = 100
)

// Preferences are the user's generation and display settings.
type Preferences struct {
	DefaultFormat        Style `json:"defaultFormat"`
	TextComplexity       int   `json:"textComplexity"`
	NotificationsEnabled bool  `json:"notificationsEnabled"`
	CacheEnabled         bool  `json:"cacheEnabled"`
}

// DefaultPreferences mirrors a freshly installed client.
func DefaultPreferences() Preferences {
	return Preferences{
		DefaultFormat:        StylePlainText,
		TextComplexity:       DefaultTextComplexity,
		NotificationsEnabled: true,
		CacheEnabled:         true,
	}
}

package model

// Repository is a GitHub repository as mirrored by the backend.
// IsMonitored is the only field the client changes, through a toggle call.
type Repository struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	FullName      string `json:"fullName"`
	Description   string `json:"description"`
	Language      string `json:"language"`
	LanguageColor string `json:"languageColor"`
	LastUpdated   string `json:"lastUpdated"`
	IsMonitored   bool   `json:"isMonitored"`
	Stars         int    `json:"stars"`
	Commits       *int   `json:"commits"` // nil when the backend did not count them
	URL           string `json:"url,omitempty"`
	Pinned        bool   `json:"pinned"`
}

package model

// Activity is one entry of the backend's AI generation history.
type Activity struct {
	ID        string `json:"id"`
	RepoName  string `json:"repo_name"`
	Style     string `json:"style"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
}

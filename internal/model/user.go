// Package model defines the view-models shared by the API client, the
// session store and the page handlers.
package model

// User is the read-only projection of the backend's current-user response.
// The client never mutates it; a new fetch replaces it wholesale.
type User struct {
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	Email    string `json:"email,omitempty"`
}

// DisplayName returns Name when the backend knows it, Username otherwise.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

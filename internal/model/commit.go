package model

// CommitFile is one changed file of a commit.
type CommitFile struct {
	Filename  string `json:"filename"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// Commit is a read-only commit view-model.
type Commit struct {
	ID               string       `json:"id"`
	SHA              string       `json:"sha"`
	FullSHA          string       `json:"fullSha"`
	Message          string       `json:"message"`
	Author           string       `json:"author"`
	AuthorAvatar     string       `json:"authorAvatar,omitempty"`
	RepoName         string       `json:"repoName"`
	RepoFullName     string       `json:"repoFullName"`
	Timestamp        string       `json:"timestamp"`
	FilesChanged     int          `json:"filesChanged"`
	Additions        int          `json:"additions"`
	Deletions        int          `json:"deletions"`
	HasDocumentation bool         `json:"hasDocumentation"`
	Files            []CommitFile `json:"files"`
}

package view

import (
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/autodocwriter/autodoc/internal/model"
)

// CommitsPerPage is how many commits the commits page asks for.
const CommitsPerPage = 25

// FilterCommits keeps the commits whose message or SHA contains search,
// case-insensitively. An empty search keeps everything.
func FilterCommits(commits []model.Commit, search string) []model.Commit {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]model.Commit, 0, len(commits))
	for _, c := range commits {
		if needle == "" ||
			strings.Contains(strings.ToLower(c.Message), needle) ||
			strings.Contains(strings.ToLower(c.SHA), needle) ||
			strings.Contains(strings.ToLower(c.FullSHA), needle) {
			out = append(out, c)
		}
	}
	return out
}

// ChangeStats summarises one numeric field across commits.
type ChangeStats struct {
	Total  int     `json:"total"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
}

// CommitStats summarises a commit list for the dashboard.
type CommitStats struct {
	Count        int         `json:"count"`
	Documented   int         `json:"documented"`
	Additions    ChangeStats `json:"additions"`
	Deletions    ChangeStats `json:"deletions"`
	FilesChanged ChangeStats `json:"filesChanged"`
}

// SummarizeCommits computes counts, totals, means and medians. Means and
// medians are rounded to one decimal; an empty list yields zeros.
func SummarizeCommits(commits []model.Commit) CommitStats {
	var adds, dels, files stats.Float64Data
	s := CommitStats{Count: len(commits)}
	for _, c := range commits {
		if c.HasDocumentation {
			s.Documented++
		}
		adds = append(adds, float64(c.Additions))
		dels = append(dels, float64(c.Deletions))
		files = append(files, float64(c.FilesChanged))
	}
	s.Additions = summarize(adds)
	s.Deletions = summarize(dels)
	s.FilesChanged = summarize(files)
	return s
}

func summarize(data stats.Float64Data) ChangeStats {
	if data.Len() == 0 {
		return ChangeStats{}
	}
	// errors only signal empty input, handled above
	sum, _ := stats.Sum(data)
	mean, _ := stats.Mean(data)
	median, _ := stats.Median(data)
	mean, _ = stats.Round(mean, 1)
	median, _ = stats.Round(median, 1)
	return ChangeStats{Total: int(sum), Mean: mean, Median: median}
}

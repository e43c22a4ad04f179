package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/autodocwriter/autodoc/internal/activity"
	"github.com/autodocwriter/autodoc/internal/format"
	"github.com/autodocwriter/autodoc/internal/model"
	"github.com/autodocwriter/autodoc/internal/view"
)

// LIPGLOSS STYLES:
// A lipgloss.Style is an immutable value; Render wraps a string in the ANSI
// sequences for its colours. The default renderer looks at the process's
// stdout; when it is not a terminal (pipes, tests) Render returns the text
// unstyled, so assertions on command output see plain strings.
//
// Colours are ANSI 256 palette indices.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	activeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	inactiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	pinStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	shaStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("178"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

func renderUser(w io.Writer, u *model.User) {
	fmt.Fprintln(w, titleStyle.Render("Signed in as "+u.DisplayName()))
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Username:"), u.Username)
	if u.Email != "" {
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Email:   "), u.Email)
	}
}

// renderRepositories prints one line per repository:
//
//	● on  ★ octo/alpha                       Go              12 commits  3 hours ago
func renderRepositories(w io.Writer, repos []model.Repository, counts view.RepositoryCounts) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Repositories (%d active, %d inactive)", counts.Active, counts.Inactive)))
	if len(repos) == 0 {
		fmt.Fprintln(w, dimStyle.Render("  no repositories match"))
		return
	}
	for _, r := range repos {
		state := inactiveStyle.Render("○ off")
		if r.IsMonitored {
			state = activeStyle.Render("● on ")
		}
		pin := "  "
		if r.Pinned {
			pin = pinStyle.Render("★ ")
		}
		commits := "-"
		if r.Commits != nil {
			commits = fmt.Sprint(*r.Commits)
		}
		fmt.Fprintf(w, "%s %s%-32s %-12s %6s commits  %s\n",
			state, pin, r.FullName, r.Language, commits,
			dimStyle.Render(format.RelativeTime(r.LastUpdated)))
	}
}

func renderCommits(w io.Writer, commits []model.Commit, s view.CommitStats) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Commits (%d, %d documented)", s.Count, s.Documented)))
	if len(commits) == 0 {
		fmt.Fprintln(w, dimStyle.Render("  no commits"))
		return
	}
	for _, c := range commits {
		doc := " "
		if c.HasDocumentation {
			doc = activeStyle.Render("✓")
		}
		// subject line only
		message, _, _ := strings.Cut(c.Message, "\n")
		fmt.Fprintf(w, "%s %s %-24s %s %s\n",
			doc, shaStyle.Render(c.SHA), c.RepoFullName, message,
			dimStyle.Render(fmt.Sprintf("+%d -%d · %s", c.Additions, c.Deletions, format.RelativeTime(c.Timestamp))))
	}
	if s.Count > 0 {
		fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("additions: mean %.1f, median %.1f · deletions: mean %.1f, median %.1f",
			s.Additions.Mean, s.Additions.Median, s.Deletions.Mean, s.Deletions.Median)))
	}
}

// renderDocumentation prints the text of one style.
func renderDocumentation(w io.Writer, doc *model.Documentation, style model.Style) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s @ %s", doc.RepoFullName, doc.CommitSHA)))
	fmt.Fprintln(w, dimStyle.Render("generated "+format.RelativeTime(doc.GeneratedAt)))
	fmt.Fprintln(w)

	text := doc.Text(style)
	if text == "" {
		fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("no %s documentation was generated", style)))
		return
	}
	fmt.Fprintln(w, text)
}

// renderActivity prints the feed; the last error, if any, stays above the
// items fetched before it.
func renderActivity(w io.Writer, snap activity.Snapshot) {
	fmt.Fprintln(w, titleStyle.Render("Activity"))
	if snap.Error != "" {
		fmt.Fprintln(w, errorStyle.Render(snap.Error))
	}
	if len(snap.Items) == 0 {
		fmt.Fprintln(w, dimStyle.Render("  no generations yet"))
		return
	}
	for _, it := range snap.Items {
		fmt.Fprintf(w, "%-10s %-24s %-10s %s\n",
			it.Status, it.RepoName, it.Style, dimStyle.Render(it.When))
	}
}

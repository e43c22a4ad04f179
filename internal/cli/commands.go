package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/autodocwriter/autodoc/internal/activity"
	"github.com/autodocwriter/autodoc/internal/config"
	"github.com/autodocwriter/autodoc/internal/export"
	"github.com/autodocwriter/autodoc/internal/model"
	"github.com/autodocwriter/autodoc/internal/poll"
	"github.com/autodocwriter/autodoc/internal/server"
	"github.com/autodocwriter/autodoc/internal/service"
	"github.com/autodocwriter/autodoc/internal/storage"
	"github.com/autodocwriter/autodoc/internal/view"
)

// loginTimeout bounds how long login waits for the backend to accept a token.
const loginTimeout = 15 * time.Second

// newServeCmd runs the web server until SIGINT or SIGTERM.
func newServeCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web front end",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Changed: the flag wins only when it was actually given,
			// otherwise config (file or AUTODOC_PORT) decides.
			if cmd.Flags().Changed("port") {
				a.cfg.Port = port
			}
			if a.cfg.CookieSecret == config.DefaultCookieSecret {
				a.logger.Warn("using the development cookie secret; set AUTODOC_COOKIE_SECRET in production")
			}

			// NotifyContext cancels ctx on the first signal; Start then
			// shuts the server down gracefully.
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := server.New(server.Config{
				Port:          a.cfg.Port,
				APIURL:        a.cfg.APIURL,
				DBPath:        a.cfg.DBPath,
				CookieSecret:  a.cfg.CookieSecret,
				SecureCookies: a.cfg.SecureCookies,
				PollInterval:  a.cfg.PollInterval,
			}, a.logger)
			if err != nil {
				return err
			}
			return srv.Start(ctx)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default from config)")
	return cmd
}

// newLoginCmd stores a token the same way the OAuth callback does and waits
// for the backend to accept it.
func newLoginCmd(a *app) *cobra.Command {
	var token, username string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a backend token",
		Long: `Sign in with a token issued by the backend.

Without --token the GitHub sign-in URL is printed. The backend redirects back
to the web front end, so sign in through "autodoc serve" in a browser, or copy
the token from the callback URL and pass it with --token.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			l, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer l.Close()

			out := cmd.OutOrStdout()
			if token == "" {
				fmt.Fprintln(out, titleStyle.Render("Sign in with GitHub:"))
				fmt.Fprintln(out, l.profile.API.LoginURL())
				return nil
			}

			if err := l.profile.Session.SetAuthToken(ctx, token); err != nil {
				return err
			}
			if username != "" {
				if err := l.profile.KV.Set(ctx, storage.KeyUsername, username); err != nil {
					return err
				}
			}

			// SetAuthToken returned with the session resolving; wait for
			// the answer. A rejected token lands in Unauthenticated.
			wctx, cancel := context.WithTimeout(ctx, loginTimeout)
			defer cancel()
			snap, err := l.session(wctx)
			if errors.Is(err, errNotLoggedIn) {
				return errors.New("the backend rejected the token")
			}
			if err != nil {
				return err
			}
			renderUser(out, snap.User)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "access token from the backend")
	cmd.Flags().StringVar(&username, "username", "", "GitHub username to remember")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer l.Close()

			if err := l.profile.Session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, l *local) error {
				renderUser(cmd.OutOrStdout(), l.profile.Session.Snapshot().User)
				return nil
			})
		},
	}
}

// newReposCmd lists repositories with the same filter as the web page and
// carries the toggle and pin subcommands.
func newReposCmd(a *app) *cobra.Command {
	var search, filter, sort string

	cmd := &cobra.Command{
		Use:   "repos",
		Short: "List repositories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, l *local) error {
				page, err := l.profile.API.FetchRepositories(ctx, true)
				if err != nil {
					return err
				}
				pinned, err := l.lib.PinnedRepos(ctx)
				if err != nil {
					return err
				}
				repos := view.ApplyPins(page.Repositories, pinned)
				query := view.ParseRepoQuery(search, filter, sort)
				renderRepositories(cmd.OutOrStdout(), view.FilterRepositories(repos, query), view.CountRepositories(repos))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&search, "query", "q", "", "filter by name or description")
	cmd.Flags().StringVar(&filter, "filter", "all", "all, active or inactive")
	cmd.Flags().StringVar(&sort, "sort", "recent", "recent or name")

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle NAME",
		Short: "Switch monitoring of a repository on or off",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, l *local) error {
				page, err := l.profile.API.FetchRepositories(ctx, false)
				if err != nil {
					return err
				}
				// The CLI has no list on screen to revert; on failure the
				// error is returned and nothing is printed.
				repo, err := view.NewRepoList(page.Repositories).Toggle(ctx, l.profile.API, args[0])
				if err != nil {
					return err
				}
				state := "off"
				if repo.IsMonitored {
					state = "on"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Monitoring of %s is %s.\n", repo.FullName, state)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "pin ID",
		Short: "Pin or unpin a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, l *local) error {
				pinned, err := l.lib.TogglePin(ctx, args[0])
				if err != nil {
					return err
				}
				verb := "Unpinned"
				if pinned {
					verb = "Pinned"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s.\n", verb, args[0])
				return nil
			})
		},
	})
	return cmd
}

func newCommitsCmd(a *app) *cobra.Command {
	var repo, search string

	cmd := &cobra.Command{
		Use:   "commits",
		Short: "List recent commits",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, l *local) error {
				commits, err := l.profile.API.FetchCommits(ctx, repo, view.CommitsPerPage, repo != "")
				if err != nil {
					return err
				}
				filtered := view.FilterCommits(commits, search)
				renderCommits(cmd.OutOrStdout(), filtered, view.SummarizeCommits(filtered))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&repo, "repo", "r", "", "only commits of this repository (owner/name)")
	cmd.Flags().StringVarP(&search, "query", "q", "", "filter by message or SHA")
	return cmd
}

func newGenerateCmd(a *app) *cobra.Command {
	var (
		style      string
		complexity int
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "generate OWNER/REPO SHA",
		Short: "Generate documentation for a commit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, l *local) error {
				req := service.GenerateRequest{
					RepoFullName: args[0],
					CommitSHA:    args[1],
					Style:        model.Style(style),
					Force:        force,
				}
				// nil complexity means "use the preference"; 0 is a valid value
				if cmd.Flags().Changed("complexity") {
					req.Complexity = &complexity
				}

				doc, err := service.NewDocsService(l.profile.API, l.lib, a.logger).Generate(ctx, req)
				if err != nil {
					return err
				}

				show := req.Style
				if show == "" {
					prefs, err := l.lib.Preferences(ctx)
					if err != nil {
						return err
					}
					show = prefs.DefaultFormat
				}
				renderDocumentation(cmd.OutOrStdout(), doc, show)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&style, "style", "s", "", "plainText, research or latex (default from preferences)")
	cmd.Flags().IntVarP(&complexity, "complexity", "c", 0, "text complexity 0-100 (default from preferences)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "regenerate even when the backend has a cached result")
	return cmd
}

// newExportCmd writes the latest document. It needs no backend call and no
// session, only the stored document.
func newExportCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export FORMAT",
		Short: "Write the latest documentation as markdown, latex or txt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(args[0])
			if err != nil {
				return err
			}

			l, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer l.Close()

			doc, _, err := l.lib.LatestDocumentation(cmd.Context())
			if err != nil {
				return err
			}
			file, err := export.Render(doc, f)
			if err != nil {
				return err
			}

			if output == "-" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), file.Content)
				return err
			}
			if output == "" {
				output = file.Name
			}
			if err := os.WriteFile(output, []byte(file.Content), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			a.logger.Debug("documentation exported", slog.String("file", output))
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s.\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", `output file, "-" for stdout (default <repo>-<sha>.<ext>)`)
	return cmd
}

// newActivityCmd prints the activity feed once, or every poll interval with
// --watch.
func newActivityCmd(a *app) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show recent documentation generations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, l *local) error {
				out := cmd.OutOrStdout()
				feed := activity.New(l.profile.API, a.logger)

				if !watch {
					feed.Refresh(ctx)
					renderActivity(out, feed.Snapshot())
					return nil
				}

				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()

				// The same poll loop the web activity page runs, printing each
				// snapshot instead of serving it.
				task := poll.Start(ctx, a.cfg.PollInterval, func(ctx context.Context) {
					feed.Refresh(ctx)
					if ctx.Err() == nil {
						renderActivity(out, feed.Snapshot())
					}
				})
				<-ctx.Done()
				task.Stop()
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep polling until interrupted")
	return cmd
}

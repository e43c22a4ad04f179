// Package cli contains the autodoc commands, built with Cobra.
//
// Every command except serve works on one local profile stored in the same
// database as the browser profiles, so a token set with `autodoc login`
// survives between invocations.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/autodocwriter/autodoc/internal/api"
	"github.com/autodocwriter/autodoc/internal/config"
	"github.com/autodocwriter/autodoc/internal/library"
	"github.com/autodocwriter/autodoc/internal/session"
	"github.com/autodocwriter/autodoc/internal/storage/sqlite"
)

// LocalProfile is the profile ID the CLI uses.
const LocalProfile = "cli"

// errNotLoggedIn is returned by commands that need a resolved session.
var errNotLoggedIn = errors.New("not logged in: run `autodoc login --token <token>`")

// app carries the flags and the loaded configuration.
type app struct {
	configPath string
	logLevel   string

	cfg    config.Config
	logger *slog.Logger
}

// NewRootCmd builds the command tree.
//
// COMMAND TREE:
//
//	autodoc
//	├── serve              web front end
//	├── login / logout     store or forget the backend token
//	├── whoami
//	├── repos              ├── toggle NAME   └── pin ID
//	├── commits
//	├── generate OWNER/REPO SHA
//	├── export FORMAT
//	└── activity [--watch]
//
// The tree is built fresh on every call instead of living in package
// variables, so each test gets its own flags and output buffers.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "autodoc",
		Short: "AI documentation for your GitHub commits",
		Long: `autodoc is the client of the AutoDoc Writer backend.

It serves the web front end (autodoc serve) and offers the same pages on the
command line: sign in, pick repositories to monitor, generate documentation
for a commit and export it as Markdown, LaTeX or plain text.`,
		// RunE errors are printed once by Execute, without the usage text.
		SilenceUsage:  true,
		SilenceErrors: true,
		// Runs before every subcommand: flags are parsed by now, so
		// --config and --log-level are known.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/.autodoc/config.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newServeCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newReposCmd(a),
		newCommitsCmd(a),
		newGenerateCmd(a),
		newExportCmd(a),
		newActivityCmd(a),
	)
	return root
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	root := NewRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error:"), err)
		os.Exit(1)
	}
}

// load reads the configuration and builds the logger. Logs go to stderr so
// stdout carries only command output (export -o - pipes the document).
func (a *app) load(stderr io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

// local is the CLI's profile, opened for one command.
type local struct {
	db       *sqlite.DB
	registry *session.Registry
	profile  *session.Profile
	lib      *library.Library
}

// open opens the database and mounts the CLI profile. Mounting starts the
// resolution of a stored token; session waits for it.
func (a *app) open(ctx context.Context) (*local, error) {
	if a.cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(a.cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sqlite.New(a.cfg.DBPath)
	if err != nil {
		return nil, err
	}

	reg := session.NewRegistry(db, api.New(a.cfg.APIURL, api.WithLogger(a.logger)), a.logger)
	p, err := reg.Get(ctx, LocalProfile)
	if err != nil {
		reg.Close()
		db.Close()
		return nil, err
	}
	return &local{db: db, registry: reg, profile: p, lib: library.New(p.KV, a.logger)}, nil
}

// Close stops the profile's tasks before the database goes away.
func (l *local) Close() {
	l.registry.Close()
	l.db.Close()
}

// session waits for the stored token to resolve and fails when there is no
// authenticated session.
func (l *local) session(ctx context.Context) (session.Snapshot, error) {
	snap, err := l.profile.Session.Wait(ctx)
	if err != nil {
		return snap, err
	}
	if !snap.IsAuthenticated() {
		return snap, errNotLoggedIn
	}
	return snap, nil
}

// withSession opens the local profile, requires a session and runs fn.
func (a *app) withSession(cmd *cobra.Command, fn func(ctx context.Context, l *local) error) error {
	ctx := cmd.Context()
	l, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer l.Close()

	if _, err := l.session(ctx); err != nil {
		return err
	}
	return fn(ctx, l)
}

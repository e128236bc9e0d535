package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/kraitsura/ktree_viewer/pkg/journal"
	"github.com/kraitsura/ktree_viewer/pkg/loader"
	"github.com/kraitsura/ktree_viewer/pkg/server"
	"github.com/kraitsura/ktree_viewer/pkg/session"
	"github.com/kraitsura/ktree_viewer/pkg/traversal"
	"github.com/kraitsura/ktree_viewer/pkg/ui"
	"github.com/kraitsura/ktree_viewer/pkg/watcher"
)

type serveFlags struct {
	host    string
	port    int
	open    bool
	order   string
	console bool
	noWatch bool
	logFile string
}

func newServeCmd(a *app) *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:   "serve <tree-file>",
		Short: "Serve the 2D and 3D views over HTTP",
		Long: `Serve the page shell and the JSON/WebSocket API that drive the 2D diagram
and the 3D scene. The tree file is watched and remounted when it changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("host") {
				a.cfg.Server.Host = f.host
			}
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = f.port
			}
			if cmd.Flags().Changed("open") {
				a.cfg.Server.OpenBrowser = f.open
			}
			if err := a.applyOrder(f.order); err != nil {
				return err
			}
			if f.console {
				if err := requireTerminal(); err != nil {
					return err
				}
				closeLog, err := a.redirectLog(f.logFile)
				if err != nil {
					return err
				}
				defer closeLog()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, args[0], f)
		},
	}
	cmd.Flags().StringVar(&f.host, "host", "", "Address to bind")
	cmd.Flags().IntVarP(&f.port, "port", "p", 0, "Port to bind (0 picks a free port)")
	cmd.Flags().BoolVar(&f.open, "open", false, "Open the viewer in the browser")
	cmd.Flags().StringVar(&f.order, "order", "", "Traversal order: bfs or dfs")
	cmd.Flags().BoolVar(&f.console, "console", false, "Run the terminal console alongside the server")
	cmd.Flags().BoolVar(&f.noWatch, "no-watch", false, "Do not reload the tree when the file changes")
	cmd.Flags().StringVar(&f.logFile, "log-file", "", "Write logs here while the console owns the terminal")
	return cmd
}

func (a *app) serve(ctx context.Context, path string, f serveFlags) error {
	sess, err := a.openSession(path)
	if err != nil {
		return err
	}
	defer sess.Close()

	closeJournal := a.startJournal(sess)
	defer closeJournal()

	srv, err := server.New(sess, a.cfg.Server, a.logger)
	if err != nil {
		return err
	}
	if err := srv.Listen(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(gctx) })
	if a.cfg.Watch.Enabled && !f.noWatch {
		g.Go(func() error { return a.watch(gctx, path, sess) })
	}
	if f.console {
		g.Go(func() error {
			defer cancel()
			return runConsole(gctx, sess)
		})
	} else {
		fmt.Fprintf(a.stderr, "Viewing %s at %s (Ctrl+C to stop)\n", sess.Name(), srv.URL())
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newTuiCmd(a *app) *cobra.Command {
	var order string
	var noWatch bool
	cmd := &cobra.Command{
		Use:   "tui <tree-file>",
		Short: "Present the tree in the terminal console only",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireTerminal(); err != nil {
				return err
			}
			if err := a.applyOrder(order); err != nil {
				return err
			}
			closeLog, err := a.redirectLog("")
			if err != nil {
				return err
			}
			defer closeLog()

			sess, err := a.openSession(args[0])
			if err != nil {
				return err
			}
			defer sess.Close()
			closeJournal := a.startJournal(sess)
			defer closeJournal()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if a.cfg.Watch.Enabled && !noWatch {
				done := a.background("watcher", func() error { return a.watch(ctx, args[0], sess) })
				defer func() {
					cancel()
					<-done
				}()
			}
			return runConsole(ctx, sess)
		},
	}
	cmd.Flags().StringVar(&order, "order", "", "Traversal order: bfs or dfs")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not reload the tree when the file changes")
	return cmd
}

// runConsole runs the bubbletea console until the user quits or ctx ends.
func runConsole(ctx context.Context, sess *session.Session) error {
	m := ui.NewModel(sess, ui.DefaultTheme(lipgloss.DefaultRenderer()))
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	stop := ui.WatchFocus(p, sess)
	defer stop()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("console: %w", err)
	}
	return nil
}

func (a *app) applyOrder(order string) error {
	if order == "" {
		return nil
	}
	o, err := traversal.ParseOrder(order)
	if err != nil {
		return err
	}
	a.cfg.Order = string(o)
	return nil
}

// watch remounts the tree whenever the file changes. A file that fails to
// parse keeps the current tree mounted.
func (a *app) watch(ctx context.Context, path string, sess *session.Session) error {
	w, err := watcher.New(path, func() {
		doc, err := loader.LoadDocument(path)
		if err != nil {
			a.logger.Warn("reload failed, keeping current tree", "path", path, "err", err)
			return
		}
		if err := sess.ReplaceTree(doc); err != nil {
			a.logger.Warn("reload rejected", "path", path, "err", err)
			return
		}
		a.logger.Info("tree reloaded", "path", path, "tree", sess.Name())
	}, watcher.Options{
		Debounce:  a.cfg.WatchDebounce(),
		ForcePoll: a.cfg.Watch.Poll,
		Logger:    a.logger,
	})
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

// background runs fn on its own goroutine and logs a failure, since nothing
// else observes it. The returned channel is closed once fn has returned.
func (a *app) background(name string, fn func() error) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := fn(); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn(name+" stopped", "err", err)
		}
	}()
	return done
}

// startJournal records the session's focus changes when the journal is
// enabled. Journal failures are logged and never stop the viewer.
func (a *app) startJournal(sess *session.Session) func() {
	if !a.cfg.Journal.Enabled {
		return func() {}
	}
	j, err := journal.Open(a.cfg.Journal.Path, a.cfg.Journal.Driver)
	if err != nil {
		a.logger.Warn("journal disabled", "path", a.cfg.Journal.Path, "err", err)
		return func() {}
	}
	snap := sess.Focus().Snapshot()
	ps, err := j.StartSession(sess.Name(), string(sess.Order()), len(snap.Order))
	if err != nil {
		a.logger.Warn("journal disabled", "err", err)
		j.Close()
		return func() {}
	}
	rec := journal.Attach(j, ps, sess.Focus(), a.logger)
	return func() {
		if err := rec.Close(); err != nil {
			a.logger.Warn("could not complete journal session", "err", err)
		}
		j.Close()
	}
}

// redirectLog moves logging off the terminal while the console draws on it.
func (a *app) redirectLog(path string) (func(), error) {
	if path == "" {
		a.logger.SetOutput(io.Discard)
		return func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	a.logger.SetOutput(f)
	return func() { f.Close() }, nil
}

func requireTerminal() error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("the console needs an interactive terminal")
	}
	return nil
}

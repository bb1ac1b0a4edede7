package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/and161185/wordshelf/internal/api"
	"github.com/and161185/wordshelf/internal/config"
	"github.com/and161185/wordshelf/internal/dashboard"
	"github.com/and161185/wordshelf/internal/errs"
	"github.com/and161185/wordshelf/internal/migrate"
	"github.com/and161185/wordshelf/internal/model"
	"github.com/and161185/wordshelf/internal/observability"
	"github.com/and161185/wordshelf/internal/session"
)

// app holds the wiring shared by every command.
type app struct {
	cfg    *config.Client
	log    *zap.Logger
	mgr    *session.Manager
	dash   *dashboard.Session
	in     *bufio.Scanner
	out    io.Writer
	errOut io.Writer

	closers []func()
}

func newApp(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) (*app, []string, error) {
	_ = config.LoadDotEnv()
	fs := flag.NewFlagSet("ws", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cfg := config.RegisterClient(fs)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if fs.NArg() < 1 {
		return nil, nil, errUsage
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	log, err := observability.NewLogger(cfg.Verbose)
	if err != nil {
		return nil, nil, err
	}
	a := &app{cfg: cfg, log: log, in: bufio.NewScanner(stdin), out: stdout, errOut: stderr}
	a.closers = append(a.closers, func() { _ = log.Sync() })

	store, err := a.openStore(ctx)
	if err != nil {
		a.close()
		return nil, nil, err
	}
	a.mgr = session.NewManager(store, log)
	a.mgr.Load(ctx)

	client := api.NewClient(cfg.APIURL, api.WithLogger(log))
	a.dash = dashboard.New(a.mgr, dashboard.RemoteEndpoints(client), dashboard.Options{
		PageSize: cfg.PageSize,
		CacheTTL: cfg.CacheTTL,
	}, log)
	a.closers = append(a.closers, a.dash.Close)

	unsub := a.dash.Gate().OnUpgradeRequired(func() {
		fmt.Fprintln(a.errOut, "This feature needs a Pro subscription. Upgrade to Pro to use it.")
	})
	a.closers = append(a.closers, unsub)
	return a, fs.Args(), nil
}

func (a *app) openStore(ctx context.Context) (session.Persister, error) {
	switch a.cfg.SessionStore {
	case config.StorePostgres:
		if err := migrate.UpClient(ctx, a.cfg.DSN); err != nil {
			return nil, err
		}
		pool, err := pgxpool.New(ctx, a.cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect session store: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		return session.NewPGStore(pool), nil
	default:
		return session.NewFileStore(a.cfg.ConfigDir), nil
	}
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) dispatch(ctx context.Context, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "version":
		fmt.Fprintf(a.out, "ws %s (%s)\n", version, buildDate)
		return nil
	case "login":
		return a.login(ctx, rest)
	case "logout":
		return a.logout(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "list":
		return a.list(ctx, rest)
	case "rm":
		return a.rm(ctx, rest)
	case "browse":
		return a.browse(ctx, rest)
	case "pdf":
		return a.pdf(ctx, rest)
	default:
		return errUsage
	}
}

// readLine prompts and reads one trimmed line; io.EOF when input ends.
func (a *app) readLine(prompt string) (string, error) {
	if prompt != "" {
		fmt.Fprint(a.out, prompt)
	}
	if !a.in.Scan() {
		if err := a.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(a.in.Text()), nil
}

func parseKind(s string) (model.Kind, error) {
	k := model.Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown kind %q (want words, pages, paragraphs, links or issues)", s)
	}
	return k, nil
}

// userMessage hides plan rejections, already announced by the upgrade handler.
func userMessage(err error) string {
	if errors.Is(err, errs.ErrUnauthenticated) {
		return "not signed in (run: ws login -u <email>)"
	}
	return errs.UserMessage(err)
}

// multiFlag collects a repeatable string flag.
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

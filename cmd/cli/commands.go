package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/and161185/wordshelf/internal/collection"
	"github.com/and161185/wordshelf/internal/dashboard"
	"github.com/and161185/wordshelf/internal/errs"
	"github.com/and161185/wordshelf/internal/feed"
	"github.com/and161185/wordshelf/internal/model"
)

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	user := fs.String("u", "", "email")
	pass := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *user == "" {
		return errUsage
	}
	if *pass == "" {
		p, err := a.readLine("password: ")
		if err != nil {
			return err
		}
		*pass = p
	}

	s, err := a.dash.Login(ctx, *user, *pass)
	if errors.Is(err, errs.ErrUnauthenticated) {
		return errors.New("login failed: wrong email or password")
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "signed in as %s (%s plan), session valid until %s\n",
		s.User.Email, s.User.Plan, time.Unix(s.AccessTokenExpiresAt, 0).Format(time.RFC3339))
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if err := a.dash.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "signed out")
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	cur := a.mgr.Current()
	if cur == nil {
		return errs.ErrUnauthenticated
	}
	sub, err := a.dash.Subscription(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s <%s>\nplan: %s (%s)\n", cur.User.Name, cur.User.Email, sub.Plan, sub.Status)
	return nil
}

// filterFlags registers -folder and repeatable -status on fs.
func filterFlags(fs *flag.FlagSet) func() []string {
	folder := fs.String("folder", "", "folder (words, links)")
	var statuses multiFlag
	fs.Var(&statuses, "status", "issue status, repeatable")
	return func() []string {
		var out []string
		if *folder != "" {
			out = append(out, dashboard.FolderFilter(*folder))
		}
		return append(out, dashboard.StatusFilters(statuses...)...)
	}
}

// kindArgs splits "<kind> [flags]" so flags may follow the kind.
func kindArgs(args []string) (model.Kind, []string, error) {
	if len(args) < 1 {
		return "", nil, errUsage
	}
	k, err := parseKind(args[0])
	return k, args[1:], err
}

func (a *app) list(ctx context.Context, args []string) error {
	kind, rest, err := kindArgs(args)
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	offset := fs.Int("offset", 0, "first item")
	limit := fs.Int("limit", a.dash.PageSize(), "items per page")
	filters := filterFlags(fs)
	if err := fs.Parse(rest); err != nil {
		return errUsage
	}

	c, err := a.dash.Collection(kind)
	if err != nil {
		return err
	}
	st, err := c.FetchPage(ctx, *offset, *limit, filters()...)
	if err != nil {
		return err
	}
	printPage(a.out, st)
	return nil
}

func (a *app) rm(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	kind, err := parseKind(args[0])
	if err != nil {
		return err
	}
	c, err := a.dash.Collection(kind)
	if err != nil {
		return err
	}
	if err := c.DeleteItem(ctx, args[1]); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "deleted")
	return nil
}

func (a *app) browse(ctx context.Context, args []string) error {
	kind, rest, err := kindArgs(args)
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("browse", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	filters := filterFlags(fs)
	if err := fs.Parse(rest); err != nil {
		return errUsage
	}
	c, err := a.dash.Collection(kind)
	if err != nil {
		return err
	}

	st, err := c.FetchPage(ctx, 0, a.dash.PageSize(), filters()...)
	a.show(st, err)

	for {
		line, err := a.readLine("[n]ext [p]rev [r]eload rm <#> [q]uit > ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		cmd, arg, _ := strings.Cut(line, " ")
		switch cmd {
		case "n", "next":
			if !c.HasNext() {
				fmt.Fprintln(a.out, "already on the last page")
				continue
			}
			st, err = c.NextPage(ctx)
		case "p", "prev":
			if !c.HasPrev() {
				fmt.Fprintln(a.out, "already on the first page")
				continue
			}
			st, err = c.PrevPage(ctx)
		case "r", "reload":
			st, err = c.Reload(ctx)
		case "rm":
			err = a.removeRow(ctx, c, strings.TrimSpace(arg))
			if err == nil {
				// Re-fetch when the delete shifted or invalidated the window.
				st, err = c.FetchPage(ctx, c.State().Offset, c.State().Limit, c.Filters()...)
			}
		case "q", "quit":
			return nil
		case "":
			continue
		default:
			fmt.Fprintln(a.out, "unknown command")
			continue
		}
		a.show(st, err)
	}
}

func (a *app) show(st model.CollectionState[model.SavedItem], err error) {
	if err != nil {
		a.report(err)
		return
	}
	printPage(a.out, st)
}

// removeRow deletes the item shown at 1-based row n of the current page.
func (a *app) removeRow(ctx context.Context, c *collection.Controller[model.SavedItem], n string) error {
	items := c.State().Items
	i, err := strconv.Atoi(n)
	if err != nil || i < 1 || i > len(items) {
		return fmt.Errorf("%w: no row %q on this page", errs.ErrInvalidArgument, n)
	}
	return c.DeleteItem(ctx, items[i-1].Key())
}

func (a *app) pdf(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	doc := args[0]
	l := a.dash.PDF()
	st, err := l.LoadInitial(ctx, doc)
	if err != nil {
		return err
	}
	shown := printPages(a.out, st, 0)

	// Each empty line is the reader reaching the end of what is shown.
	trigger := feed.NewTrigger(func() {
		next, err := l.LoadMore(ctx, doc)
		if err != nil {
			a.report(err)
			return
		}
		shown = printPages(a.out, next, shown)
	})
	for l.State().HasNext {
		line, err := a.readLine("-- more (enter, q to quit) --")
		if errors.Is(err, io.EOF) || line == "q" {
			return nil
		}
		if err != nil {
			return err
		}
		trigger.Observe(true)
		trigger.Observe(false)
	}
	fmt.Fprintln(a.out, "-- end of document --")
	return nil
}

// report prints a non-fatal error inside an interactive loop.
func (a *app) report(err error) {
	if err == nil {
		return
	}
	if msg := userMessage(err); msg != "" {
		fmt.Fprintln(a.errOut, "error:", msg)
	}
}

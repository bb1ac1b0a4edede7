// Command ws is the wordshelf dashboard client.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const usageText = `ws - wordshelf dashboard client
Usage:
  ws [global flags] <cmd> [args]

Global flags:
  -api URL  -config-dir DIR  -session-store file|postgres  -dsn DSN
  -page-size N  -cache-ttl DURATION  -v

Commands:
  version
  login    -u <email> [-p <password>]        (password from stdin when omitted)
  logout
  whoami
  list     <kind> [-offset N] [-limit N] [-folder F] [-status S ...]
  rm       <kind> <id>
  browse   <kind> [-folder F] [-status S ...] (interactive: n, p, r, rm <#>, q)
  pdf      <document-id>                      (enter loads more, q quits)

Kinds: words, pages, paragraphs, links, issues
`

// main delegates to run so tests can drive the CLI in-process.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// errUsage makes run print usage and exit 2.
var errUsage = errors.New("usage")

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a, rest, err := newApp(ctx, args, stdin, stdout, stderr)
	if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
		fmt.Fprint(stderr, usageText)
		return 2
	}
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	defer a.close()

	if err := a.dispatch(ctx, rest); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(stderr, usageText)
			return 2
		}
		if msg := userMessage(err); msg != "" {
			fmt.Fprintln(stderr, "error:", msg)
		}
		return 1
	}
	return 0
}

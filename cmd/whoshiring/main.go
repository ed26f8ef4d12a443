// Command whoshiring ingests the monthly Hacker News hiring threads into a
// local SQLite database and serves them to a dashboard.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// Exit statuses of the ingest command. Other commands use only exitOK and
// exitFatal.
const (
	exitOK        = 0
	exitFatal     = 1
	exitNoNewData = 2
	exitPartial   = 3
)

const usage = `usage: whoshiring <command> [flags]

commands:
  ingest                     run the pipeline once
  serve                      serve the dashboard API and ingest on a schedule
  ledger list                print the bad-id ledger
  ledger clear [-all] [id..] remove ids from the bad-id ledger
  secret set-geocoder-key    store the geocoder API key (read from stdin)
  secret delete-geocoder-key remove the stored geocoder API key

common flags:
  -data-dir string   data directory (default $WHOSHIRING_DATA_DIR or .)
  -config string     config file (default <data-dir>/config.yml)
  -env-file string   dotenv file loaded before anything else (default .env)
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return exitFatal
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "ingest":
		return runIngest(ctx, rest, stdout, stderr)
	case "serve":
		return runServe(ctx, rest, stderr)
	case "ledger":
		return runLedger(ctx, rest, stdout, stderr)
	case "secret":
		return runSecret(rest, stdin, stdout, stderr)
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
		return exitOK
	}
	fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
	return exitFatal
}

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"whoshiring-engine/internal/store"

	"github.com/dustin/go-humanize"
)

func runLedger(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "usage: whoshiring ledger list|clear [flags]")
		return exitFatal
	}
	sub, rest := args[0], args[1:]

	fs := flag.NewFlagSet("ledger "+sub, flag.ContinueOnError)
	fs.SetOutput(stderr)
	var flags commonFlags
	flags.register(fs)
	all := fs.Bool("all", false, "clear every id (clear only)")
	if err := fs.Parse(rest); err != nil {
		return exitFatal
	}

	db, err := openStore(flags)
	if err != nil {
		fmt.Fprintf(stderr, "whoshiring: %v\n", err)
		return exitFatal
	}
	defer db.Close()

	switch sub {
	case "list":
		return ledgerList(ctx, db, stdout, stderr)
	case "clear":
		return ledgerClear(ctx, db, fs.Args(), *all, stdout, stderr)
	}
	fmt.Fprintf(stderr, "unknown ledger command %q\n", sub)
	return exitFatal
}

func ledgerList(ctx context.Context, db *store.DB, stdout, stderr io.Writer) int {
	ids, err := store.ListBadIDs(ctx, db.Pool)
	if err != nil {
		fmt.Fprintf(stderr, "whoshiring: %v\n", err)
		return exitFatal
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tRECORDED")
	for _, b := range ids {
		when := b.RecordedAt
		if t, err := time.Parse(time.RFC3339, b.RecordedAt); err == nil {
			when = humanize.Time(t)
		}
		fmt.Fprintf(tw, "%d\t%s\n", b.ID, when)
	}
	_ = tw.Flush()
	fmt.Fprintf(stdout, "%s ids\n", humanize.Comma(int64(len(ids))))
	return exitOK
}

func ledgerClear(ctx context.Context, db *store.DB, args []string, all bool, stdout, stderr io.Writer) int {
	if len(args) == 0 && !all {
		fmt.Fprintln(stderr, "whoshiring: give ids to clear, or -all")
		return exitFatal
	}
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil || id <= 0 {
			fmt.Fprintf(stderr, "whoshiring: invalid id %q\n", a)
			return exitFatal
		}
		ids = append(ids, id)
	}

	n, err := store.ClearBadIDs(ctx, db.Pool, ids...)
	if err != nil {
		fmt.Fprintf(stderr, "whoshiring: %v\n", err)
		return exitFatal
	}
	fmt.Fprintf(stdout, "cleared %s ids\n", humanize.Comma(n))
	return exitOK
}

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"whoshiring-engine/internal/ingest"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/pkg/errors"
)

func runIngest(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var flags commonFlags
	flags.register(fs)
	if err := fs.Parse(args); err != nil {
		return exitFatal
	}

	a, err := newApp(ctx, flags, stderr, nil)
	if err != nil {
		fmt.Fprintf(stderr, "whoshiring: %v\n", err)
		return exitFatal
	}
	defer a.Close()

	rep, err := a.runner.RunOnce(ctx)
	if err != nil {
		a.log.Error().Err(err).Str("run", rep.RunID).Msg("ingest failed")
		if errors.Is(err, ingest.ErrBusy) {
			fmt.Fprintln(stderr, "whoshiring: another ingest run is in progress")
		}
		return exitFatal
	}

	fmt.Fprintln(stdout, summarize(rep))
	return exitCode(rep.Outcome())
}

func exitCode(o ingest.Outcome) int {
	switch o {
	case ingest.OutcomeNewData:
		return exitOK
	case ingest.OutcomeNoNewData:
		return exitNoNewData
	case ingest.OutcomePartial:
		return exitPartial
	}
	return exitFatal
}

func summarize(rep ingest.Report) string {
	took := rep.Finished.Sub(rep.Started).Round(time.Second)
	s := fmt.Sprintf("run %s: %s from %s across %s in %s",
		rep.RunID,
		english.Plural(rep.Added, "new posting", ""),
		english.Plural(rep.Retrieved, "retrieved comment", ""),
		english.Plural(rep.Periods, "thread", ""),
		took,
	)
	if n := len(rep.BadIDs); n > 0 {
		s += fmt.Sprintf(", %s bad", humanize.Comma(int64(n)))
	}
	if rep.GeocodeFailures > 0 {
		s += fmt.Sprintf(", %s", english.Plural(rep.GeocodeFailures, "city", "cities")) + " not geocoded"
	}
	return s + " (" + rep.Outcome().String() + ")"
}

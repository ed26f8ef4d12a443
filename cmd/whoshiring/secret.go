package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"strings"

	"whoshiring-engine/internal/secrets"
)

func runSecret(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "usage: whoshiring secret set-geocoder-key|delete-geocoder-key [flags]")
		return exitFatal
	}
	sub, rest := args[0], args[1:]

	fs := flag.NewFlagSet("secret "+sub, flag.ContinueOnError)
	fs.SetOutput(stderr)
	var flags commonFlags
	flags.register(fs)
	if err := fs.Parse(rest); err != nil {
		return exitFatal
	}

	cfg, _, _, err := flags.loadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "whoshiring: %v\n", err)
		return exitFatal
	}
	account := secrets.GeocoderKeyringAccount(cfg)

	switch sub {
	case "set-geocoder-key":
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && err != io.EOF {
			fmt.Fprintf(stderr, "whoshiring: read key: %v\n", err)
			return exitFatal
		}
		if err := secrets.SetGeocoderKey(account, strings.TrimSpace(line)); err != nil {
			fmt.Fprintf(stderr, "whoshiring: %v\n", err)
			return exitFatal
		}
		fmt.Fprintf(stdout, "stored geocoder key for %s\n", account)
		return exitOK
	case "delete-geocoder-key":
		if err := secrets.DeleteGeocoderKey(account); err != nil {
			fmt.Fprintf(stderr, "whoshiring: %v\n", err)
			return exitFatal
		}
		fmt.Fprintf(stdout, "deleted geocoder key for %s\n", account)
		return exitOK
	}
	fmt.Fprintf(stderr, "unknown secret command %q\n", sub)
	return exitFatal
}

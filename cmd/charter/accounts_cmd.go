package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/Mindburn-Labs/charter/pkg/identity"
)

func runAccountsCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("accounts", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	n := cmd.Int("n", 4, "Number of accounts")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if *n < 1 {
		_, _ = fmt.Fprintln(stderr, "Error: -n must be at least 1")
		return 2
	}

	for i, id := range identity.DevAccounts(*n) {
		_, _ = fmt.Fprintf(stdout, "%d  %s\n", i, id)
	}
	return 0
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/Mindburn-Labs/charter/pkg/engine"
	"github.com/Mindburn-Labs/charter/pkg/fault"
	"github.com/Mindburn-Labs/charter/pkg/identity"
	"github.com/Mindburn-Labs/charter/pkg/journal"
	"github.com/Mindburn-Labs/charter/pkg/money"
	"github.com/Mindburn-Labs/charter/pkg/observability"
)

// runDemoCmd deploys with 10 ether from dev account 0 and runs the scripted
// walkthrough. Rejected calls are reported on stderr and the walkthrough
// continues.
func runDemoCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("demo", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	logLevel := cmd.String("log-level", "error", "Engine log level")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	ctx := context.Background()
	accounts := identity.DevAccounts(3)
	j := journal.NewMemory()

	e, err := engine.New(accounts[0], money.Ether(10),
		engine.WithJournal(j),
		engine.WithLogger(observability.NewLogger(*logLevel, "text", stderr)),
	)
	if err != nil {
		report(stderr, "Error configuring the contract", err)
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "Contract deployed successfully: owner %s, balance %s\n", e.Owner(), e.Balance())

	registerUser := func(name string, account int) {
		if _, err := e.Register(ctx, accounts[account], name); err != nil {
			report(stderr, "Error registering user", err)
			return
		}
		_, _ = fmt.Fprintf(stdout, "User registered successfully: %s\n", name)
	}
	storeData := func(key, value string, account int) {
		if err := e.StoreData(ctx, accounts[account], key, value); err != nil {
			report(stderr, "Error storing data", err)
			return
		}
		_, _ = fmt.Fprintf(stdout, "Data stored successfully: %s=%s\n", key, value)
	}
	retrieveData := func(key string, account int) {
		v, err := e.RetrieveData(ctx, accounts[account], key)
		if err != nil {
			report(stderr, "Error retrieving data", err)
			return
		}
		_, _ = fmt.Fprintf(stdout, "Data retrieved successfully: %s=%s\n", key, v)
	}
	createProposal := func(description string) {
		id, err := e.CreateProposal(ctx, accounts[0], description)
		if err != nil {
			report(stderr, "Error creating proposal", err)
			return
		}
		_, _ = fmt.Fprintf(stdout, "Proposal created successfully: %s (id %d)\n", description, id)
	}
	vote := func(id uint64, account int) {
		if err := e.Vote(ctx, accounts[account], id); err != nil {
			report(stderr, "Error casting vote", err)
			return
		}
		_, _ = fmt.Fprintf(stdout, "Vote cast successfully for proposal ID: %d\n", id)
	}
	getProposal := func(id uint64) {
		p, err := e.GetProposal(ctx, accounts[0], id)
		if err != nil {
			report(stderr, "Error retrieving proposal", err)
			return
		}
		_, _ = fmt.Fprintf(stdout, "Proposal retrieved successfully: id=%d description=%q votes=%d\n", p.ID, p.Description, p.VoteCount)
	}
	distributeFunds := func(attached money.Amount) {
		d, err := e.DistributeFunds(ctx, accounts[0], attached)
		if err != nil {
			report(stderr, "Error distributing funds", err)
			return
		}
		_, _ = fmt.Fprintf(stdout, "Funds distributed successfully: %s to each of %d accounts, %s retained\n",
			d.Share, len(d.Recipients), d.Retained)
	}
	conditionalTransfer := func(recipient identity.Identity, ether uint64) {
		if err := e.ConditionalTransfer(ctx, accounts[0], recipient, money.Ether(ether)); err != nil {
			report(stderr, "Error executing conditional transfer", err)
			return
		}
		_, _ = fmt.Fprintf(stdout, "Conditional transfer executed successfully: %d ether to %s\n", ether, recipient)
	}

	registerUser("Alice", 1)
	registerUser("Bob", 2)

	storeData("key1", "value1", 1)
	retrieveData("key1", 1)

	createProposal("Proposal 1")
	vote(0, 1)
	getProposal(0)

	distributeFunds(money.Ether(5))
	conditionalTransfer(accounts[1], 1)

	entries, err := j.Entries(ctx)
	if err == nil {
		err = journal.Verify(entries)
	}
	if err != nil {
		report(stderr, "Error verifying journal", err)
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "Journal verified: %d entries, state hash %s\n", len(entries), e.StateHash())
	return 0
}

// report prints "<message>: <kind>: <detail>" for rejected calls.
func report(w io.Writer, message string, err error) {
	var fe *fault.Error
	if errors.As(err, &fe) {
		_, _ = fmt.Fprintf(w, "%s: %s: %s\n", message, fe.Kind, fe.Detail)
		return
	}
	_, _ = fmt.Fprintf(w, "%s: %v\n", message, err)
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/Mindburn-Labs/charter/pkg/config"
	"github.com/Mindburn-Labs/charter/pkg/engine"
	"github.com/Mindburn-Labs/charter/pkg/journal"
	"github.com/Mindburn-Labs/charter/pkg/observability"
)

type replayReport struct {
	Entries   int    `json:"entries"`
	Head      string `json:"head"`
	StateHash string `json:"state_hash"`
}

// replayFromConfig opens the configured journal and replays it.
func replayFromConfig(ctx context.Context, cfg *config.Config, driver, dsn string, stderr io.Writer) (*engine.Engine, replayReport, error) {
	d, err := loadDeployment(cfg)
	if err != nil {
		return nil, replayReport{}, err
	}
	j, closer, err := openJournal(ctx, driver, dsn)
	if err != nil {
		return nil, replayReport{}, err
	}
	defer func() { _ = closer.Close() }()

	entries, err := j.Entries(ctx)
	if err != nil {
		return nil, replayReport{}, err
	}
	e, err := engine.Replay(ctx, entries, d.owner, d.endowment,
		engine.WithPolicy(d.policy),
		engine.WithLogger(observability.NewLogger("error", "text", stderr)),
	)
	if err != nil {
		return nil, replayReport{}, err
	}

	rep := replayReport{Entries: len(entries), Head: journal.GenesisHash, StateHash: e.StateHash()}
	if len(entries) > 0 {
		rep.Head = entries[len(entries)-1].Hash
	}
	return e, rep, nil
}

func runReplayCmd(args []string, stdout, stderr io.Writer) int {
	cfg := config.Load()

	cmd := flag.NewFlagSet("replay", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	driver := cmd.String("driver", "sqlite", "Journal driver (sqlite, postgres)")
	dsn := cmd.String("journal", "", "SQLite path or Postgres URL (default from SQLITE_PATH / DATABASE_URL)")
	jsonOutput := cmd.Bool("json", false, "Output result as JSON")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if *dsn == "" {
		cfg.JournalDriver = *driver
		*dsn = journalDSN(cfg)
	}

	_, rep, err := replayFromConfig(context.Background(), cfg, *driver, *dsn, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Replay failed: %v\n", err)
		return 1
	}

	if *jsonOutput {
		data, _ := json.MarshalIndent(rep, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
		return 0
	}
	_, _ = fmt.Fprintf(stdout, "Journal verified: %d entries\n", rep.Entries)
	_, _ = fmt.Fprintf(stdout, "  head:       %s\n", rep.Head)
	_, _ = fmt.Fprintf(stdout, "  state hash: %s\n", rep.StateHash)
	return 0
}

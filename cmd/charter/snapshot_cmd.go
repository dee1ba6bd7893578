package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/Mindburn-Labs/charter/pkg/archive"
	"github.com/Mindburn-Labs/charter/pkg/config"
)

// runSnapshotCmd replays the configured journal and archives the resulting
// canonical snapshot.
func runSnapshotCmd(args []string, stdout, stderr io.Writer) int {
	cfg := config.Load()

	cmd := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	driver := cmd.String("driver", cfg.JournalDriver, "Journal driver (memory, sqlite, postgres)")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	cfg.JournalDriver = *driver

	ctx := context.Background()
	e, rep, err := replayFromConfig(ctx, cfg, cfg.JournalDriver, journalDSN(cfg), stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Replay failed: %v\n", err)
		return 1
	}
	snap, err := e.Snapshot()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Snapshot failed: %v\n", err)
		return 1
	}

	store, err := openArchive(ctx, cfg)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Archive unavailable: %v\n", err)
		return 1
	}
	hash, err := store.Store(ctx, snap)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Archive failed: %v\n", err)
		return 1
	}

	_, _ = fmt.Fprintf(stdout, "%s\n", hash)
	_, _ = fmt.Fprintf(stderr, "archived snapshot of %d entries (state hash %s) to %s\n", rep.Entries, rep.StateHash, cfg.ArchiveType)
	return 0
}

func openArchive(ctx context.Context, cfg *config.Config) (archive.Store, error) {
	return archive.NewStore(ctx, archive.Config{
		Type:     archive.Type(cfg.ArchiveType),
		DataDir:  cfg.DataDir,
		Bucket:   cfg.ArchiveBucket,
		Prefix:   cfg.ArchivePrefix,
		Region:   cfg.ArchiveRegion,
		Endpoint: cfg.ArchiveEndpoint,
	})
}

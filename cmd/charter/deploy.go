package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/lib/pq" // Postgres driver
	_ "modernc.org/sqlite"

	"github.com/Mindburn-Labs/charter/pkg/config"
	"github.com/Mindburn-Labs/charter/pkg/engine"
	"github.com/Mindburn-Labs/charter/pkg/identity"
	"github.com/Mindburn-Labs/charter/pkg/journal"
	"github.com/Mindburn-Labs/charter/pkg/money"
	"github.com/Mindburn-Labs/charter/pkg/observability"
	"github.com/Mindburn-Labs/charter/pkg/policy"
)

// deployment is the fixed construction input of an engine.
type deployment struct {
	owner     identity.Identity
	endowment money.Amount
	policy    policy.Policy
}

func loadDeployment(cfg *config.Config) (deployment, error) {
	owner := identity.DevAccounts(1)[0]
	if cfg.Owner != "" {
		id, err := identity.Parse(cfg.Owner)
		if err != nil {
			return deployment{}, fmt.Errorf("CHARTER_OWNER: %w", err)
		}
		owner = id
	}
	endowment, err := money.Parse(cfg.InitialBalance)
	if err != nil {
		return deployment{}, fmt.Errorf("CHARTER_INITIAL_BALANCE: %w", err)
	}
	p, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return deployment{}, err
	}
	return deployment{owner: owner, endowment: endowment, policy: p}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openJournal opens the journal named by driver. dsn is a file path for
// sqlite and a connection URL for postgres.
func openJournal(ctx context.Context, driver, dsn string) (journal.Journal, io.Closer, error) {
	switch driver {
	case "", "memory":
		return journal.NewMemory(), nopCloser{}, nil
	case "sqlite":
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		j, err := journal.Open(ctx, "sqlite", dsn)
		if err != nil {
			return nil, nil, err
		}
		return j, j, nil
	case "postgres":
		j, err := journal.Open(ctx, "postgres", dsn)
		if err != nil {
			return nil, nil, err
		}
		return j, j, nil
	default:
		return nil, nil, fmt.Errorf("unsupported journal driver: %s", driver)
	}
}

func journalDSN(cfg *config.Config) string {
	if cfg.JournalDriver == "postgres" {
		return cfg.DatabaseURL
	}
	return cfg.SQLitePath
}

// bootEngine deploys d and replays whatever j already holds, then keeps
// appending to j.
func bootEngine(ctx context.Context, d deployment, j journal.Journal, logger *slog.Logger, obs *observability.Provider) (*engine.Engine, error) {
	entries, err := j.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	opts := []engine.Option{
		engine.WithPolicy(d.policy),
		engine.WithJournal(j),
		engine.WithLogger(logger),
	}
	if obs != nil {
		opts = append(opts, engine.WithObservability(obs))
	}
	return engine.Replay(ctx, entries, d.owner, d.endowment, opts...)
}

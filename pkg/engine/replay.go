package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/Mindburn-Labs/charter/pkg/identity"
	"github.com/Mindburn-Labs/charter/pkg/journal"
	"github.com/Mindburn-Labs/charter/pkg/money"
)

var ErrReplayDiverged = errors.New("engine: replay diverged from journal")

// Replay deploys a fresh engine and re-executes entries on it. The chain is
// verified first, and every recomputed state hash must equal the recorded
// one. Entries are not re-appended; a journal passed in opts is attached
// once replay has finished.
func Replay(ctx context.Context, entries []journal.Entry, owner identity.Identity, endowment money.Amount, opts ...Option) (*Engine, error) {
	if err := journal.Verify(entries); err != nil {
		return nil, err
	}
	e, err := New(owner, endowment, opts...)
	if err != nil {
		return nil, err
	}

	j := e.journal
	e.journal = nil
	for _, en := range entries {
		if err := journal.CheckCompatible(en.EngineVersion); err != nil {
			return nil, fmt.Errorf("replay: sequence %d: %w", en.Sequence, err)
		}
		res, err := e.Execute(ctx, Call{
			ID:     en.CallID,
			Caller: en.Caller,
			Value:  en.Value,
			Op:     en.Op,
			Args:   en.Args,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: sequence %d (%s) rejected: %w", ErrReplayDiverged, en.Sequence, en.Op, err)
		}
		if res.StateHash != en.StateHash {
			return nil, fmt.Errorf("%w: sequence %d (%s) state hash %s, recorded %s",
				ErrReplayDiverged, en.Sequence, en.Op, res.StateHash, en.StateHash)
		}
	}
	e.journal = j

	e.logger.InfoContext(ctx, "journal replayed", "entries", len(entries), "state_hash", e.StateHash())
	return e, nil
}

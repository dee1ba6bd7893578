package engine

import (
	"encoding/json"
	"fmt"

	"github.com/Mindburn-Labs/charter/pkg/money"
	"github.com/Mindburn-Labs/charter/pkg/state"
)

// FromSnapshot deploys an Engine whose committed state is the snapshot in
// data. The snapshot must satisfy every state invariant.
func FromSnapshot(data []byte, opts ...Option) (*Engine, error) {
	var snap state.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("engine: decode snapshot: %w", err)
	}
	st, err := state.Restore(snap)
	if err != nil {
		return nil, fmt.Errorf("engine: restore snapshot: %w", err)
	}

	e, err := New(snap.Owner, money.Zero, opts...)
	if err != nil {
		return nil, err
	}
	hash, err := st.Hash()
	if err != nil {
		return nil, fmt.Errorf("engine: snapshot hash: %w", err)
	}
	e.st, e.hash = st, hash
	return e, nil
}

package state

import (
	"fmt"

	"github.com/Mindburn-Labs/charter/pkg/identity"
	"github.com/Mindburn-Labs/charter/pkg/money"
)

// Check verifies the structural invariants of s:
//
//   - TotalIn == TotalOut + Balance
//   - the payouts sum to TotalOut
//   - AccountOrder lists each account exactly once
//   - each proposal's id is its index and its vote count equals its voter set
func (s *State) Check() error {
	out, err := s.TotalOut.Add(s.Balance)
	if err != nil {
		return fmt.Errorf("state: total out plus balance: %w", err)
	}
	if out.Cmp(s.TotalIn) != 0 {
		return fmt.Errorf("state: conservation violated: in=%s out=%s balance=%s", s.TotalIn, s.TotalOut, s.Balance)
	}

	paid := money.Zero
	for id, amt := range s.Payouts {
		if paid, err = paid.Add(amt); err != nil {
			return fmt.Errorf("state: payout to %s: %w", id, err)
		}
	}
	if paid.Cmp(s.TotalOut) != 0 {
		return fmt.Errorf("state: payouts sum %s != total out %s", paid, s.TotalOut)
	}

	if len(s.AccountOrder) != len(s.Accounts) {
		return fmt.Errorf("state: %d accounts but %d in registration order", len(s.Accounts), len(s.AccountOrder))
	}
	seen := make(map[identity.Identity]struct{}, len(s.AccountOrder))
	for i, id := range s.AccountOrder {
		if _, ok := s.Accounts[id]; !ok {
			return fmt.Errorf("state: registration order entry %d (%s) has no account", i, id)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("state: %s registered twice", id)
		}
		seen[id] = struct{}{}
	}

	for i, p := range s.Proposals {
		if p.ID != uint64(i) {
			return fmt.Errorf("state: proposal at index %d has id %d", i, p.ID)
		}
		if p.VoteCount != uint64(len(p.Voters)) {
			return fmt.Errorf("state: proposal %d vote count %d != %d voters", p.ID, p.VoteCount, len(p.Voters))
		}
	}
	return nil
}

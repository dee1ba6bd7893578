package state

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/gowebpki/jcs"

	"github.com/Mindburn-Labs/charter/pkg/identity"
	"github.com/Mindburn-Labs/charter/pkg/money"
)

// Snapshot is the serializable view of a State. Collections are ordered so
// the same State always encodes to the same bytes.
type Snapshot struct {
	Owner     identity.Identity `json:"owner"`
	Accounts  []Account         `json:"accounts"`
	Records   []RecordSnapshot  `json:"records"`
	Balance   money.Amount      `json:"balance"`
	TotalIn   money.Amount      `json:"total_in"`
	TotalOut  money.Amount      `json:"total_out"`
	Payouts   []PayoutSnapshot  `json:"payouts"`
	Proposals []ProposalRecord  `json:"proposals"`
}

type RecordSnapshot struct {
	Owner identity.Identity `json:"owner"`
	Key   string            `json:"key"`
	Value string            `json:"value"`
}

type PayoutSnapshot struct {
	Recipient identity.Identity `json:"recipient"`
	Amount    money.Amount      `json:"amount"`
}

type ProposalRecord struct {
	ID          uint64              `json:"id"`
	Description string              `json:"description"`
	VoteCount   uint64              `json:"vote_count"`
	Voters      []identity.Identity `json:"voters"`
}

// Snapshot builds the ordered view of s.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Owner:     s.Owner,
		Accounts:  make([]Account, 0, len(s.AccountOrder)),
		Records:   make([]RecordSnapshot, 0, len(s.Records)),
		Balance:   s.Balance,
		TotalIn:   s.TotalIn,
		TotalOut:  s.TotalOut,
		Payouts:   make([]PayoutSnapshot, 0, len(s.Payouts)),
		Proposals: make([]ProposalRecord, 0, len(s.Proposals)),
	}

	for _, id := range s.AccountOrder {
		snap.Accounts = append(snap.Accounts, s.Accounts[id])
	}

	for k, v := range s.Records {
		snap.Records = append(snap.Records, RecordSnapshot{Owner: k.Owner, Key: k.Key, Value: v})
	}
	sort.Slice(snap.Records, func(i, j int) bool {
		a, b := snap.Records[i], snap.Records[j]
		if c := bytes.Compare(a.Owner[:], b.Owner[:]); c != 0 {
			return c < 0
		}
		return a.Key < b.Key
	})

	for id, amt := range s.Payouts {
		snap.Payouts = append(snap.Payouts, PayoutSnapshot{Recipient: id, Amount: amt})
	}
	sort.Slice(snap.Payouts, func(i, j int) bool {
		return bytes.Compare(snap.Payouts[i].Recipient[:], snap.Payouts[j].Recipient[:]) < 0
	})

	for _, p := range s.Proposals {
		voters := make([]identity.Identity, 0, len(p.Voters))
		for v := range p.Voters {
			voters = append(voters, v)
		}
		sort.Slice(voters, func(i, j int) bool {
			return bytes.Compare(voters[i][:], voters[j][:]) < 0
		})
		snap.Proposals = append(snap.Proposals, ProposalRecord{
			ID:          p.ID,
			Description: p.Description,
			VoteCount:   p.VoteCount,
			Voters:      voters,
		})
	}
	return snap
}

// Canonical returns the RFC 8785 encoding of the snapshot.
func (s *State) Canonical() ([]byte, error) {
	raw, err := json.Marshal(s.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("state: marshal snapshot: %w", err)
	}
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("state: canonicalize snapshot: %w", err)
	}
	return out, nil
}

// Hash returns the hex SHA-256 of the canonical snapshot.
func (s *State) Hash() (string, error) {
	b, err := s.Canonical()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Restore rebuilds a State from a snapshot.
func Restore(snap Snapshot) (*State, error) {
	s := New(snap.Owner, money.Zero)
	s.Balance = snap.Balance
	s.TotalIn = snap.TotalIn
	s.TotalOut = snap.TotalOut

	for _, a := range snap.Accounts {
		if _, dup := s.Accounts[a.Identity]; dup {
			return nil, fmt.Errorf("state: duplicate account %s", a.Identity)
		}
		s.Accounts[a.Identity] = a
		s.AccountOrder = append(s.AccountOrder, a.Identity)
	}
	for _, r := range snap.Records {
		s.Records[RecordKey{Owner: r.Owner, Key: r.Key}] = r.Value
	}
	for _, p := range snap.Payouts {
		s.Payouts[p.Recipient] = p.Amount
	}
	for i, p := range snap.Proposals {
		if p.ID != uint64(i) {
			return nil, fmt.Errorf("state: proposal at index %d has id %d", i, p.ID)
		}
		voters := make(map[identity.Identity]struct{}, len(p.Voters))
		for _, v := range p.Voters {
			voters[v] = struct{}{}
		}
		s.Proposals = append(s.Proposals, Proposal{
			ID:          p.ID,
			Description: p.Description,
			VoteCount:   p.VoteCount,
			Voters:      voters,
		})
	}
	if err := s.Check(); err != nil {
		return nil, err
	}
	return s, nil
}

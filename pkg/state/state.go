// Package state holds the explicit contract state owned by the engine.
//
// Components never keep their own copies; they receive a borrowed *State for
// the duration of one call. The engine applies each call to a Clone and swaps
// it in only on success.
package state

import (
	"maps"

	"github.com/Mindburn-Labs/charter/pkg/identity"
	"github.com/Mindburn-Labs/charter/pkg/money"
)

// Account is a registered participant. It is never deleted and its display
// name never changes.
type Account struct {
	Identity    identity.Identity `json:"identity"`
	DisplayName string            `json:"display_name"`
}

// RecordKey addresses one stored value.
type RecordKey struct {
	Owner identity.Identity
	Key   string
}

// Proposal is an open governance item. Proposals never close.
type Proposal struct {
	ID          uint64
	Description string
	VoteCount   uint64
	Voters      map[identity.Identity]struct{}
}

// HasVoted reports whether id has a vote recorded on p.
func (p *Proposal) HasVoted(id identity.Identity) bool {
	_, ok := p.Voters[id]
	return ok
}

// State is the full contract state.
type State struct {
	Owner identity.Identity

	Accounts map[identity.Identity]Account
	// AccountOrder lists identities in registration order.
	AccountOrder []identity.Identity

	Records map[RecordKey]string

	Balance  money.Amount
	TotalIn  money.Amount
	TotalOut money.Amount
	// Payouts is the amount each recipient received from the treasury.
	Payouts map[identity.Identity]money.Amount

	// Proposals is indexed by proposal id.
	Proposals []Proposal
}

// New returns the deployment state: owner fixed, balance endowed.
func New(owner identity.Identity, endowment money.Amount) *State {
	return &State{
		Owner:    owner,
		Accounts: make(map[identity.Identity]Account),
		Records:  make(map[RecordKey]string),
		Balance:  endowment,
		TotalIn:  endowment,
		Payouts:  make(map[identity.Identity]money.Amount),
	}
}

// Clone returns a deep copy that shares nothing mutable with s.
func (s *State) Clone() *State {
	c := &State{
		Owner:        s.Owner,
		Accounts:     maps.Clone(s.Accounts),
		AccountOrder: append([]identity.Identity(nil), s.AccountOrder...),
		Records:      maps.Clone(s.Records),
		Balance:      s.Balance,
		TotalIn:      s.TotalIn,
		TotalOut:     s.TotalOut,
		Payouts:      maps.Clone(s.Payouts),
		Proposals:    make([]Proposal, len(s.Proposals)),
	}
	for i, p := range s.Proposals {
		p.Voters = maps.Clone(p.Voters)
		c.Proposals[i] = p
	}
	if c.Accounts == nil {
		c.Accounts = make(map[identity.Identity]Account)
	}
	if c.Records == nil {
		c.Records = make(map[RecordKey]string)
	}
	if c.Payouts == nil {
		c.Payouts = make(map[identity.Identity]money.Amount)
	}
	return c
}

// Proposal returns the proposal with the given id, or nil.
func (s *State) Proposal(id uint64) *Proposal {
	if id >= uint64(len(s.Proposals)) {
		return nil
	}
	return &s.Proposals[id]
}

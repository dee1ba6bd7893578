// Package governance runs the proposal and voting process.
//
// Proposals are stored in an arena indexed by id. Ids are assigned in
// creation order starting at 0 and are only consumed by successful creates.
// Proposals stay open forever.
package governance

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/Mindburn-Labs/charter/pkg/access"
	"github.com/Mindburn-Labs/charter/pkg/fault"
	"github.com/Mindburn-Labs/charter/pkg/identity"
	"github.com/Mindburn-Labs/charter/pkg/state"
)

const (
	OpCreateProposal = "createProposal"
	OpVote           = "vote"
	OpGetProposal    = "getProposal"
)

// ProposalView is the public projection of a proposal. Voters are not
// exposed.
type ProposalView struct {
	ID          uint64 `json:"id"`
	Description string `json:"description"`
	VoteCount   uint64 `json:"vote_count"`
}

// Options tunes the module.
type Options struct {
	RequireRegisteredVoter bool
	MaxDescriptionLength   int
}

type Module struct {
	access access.Control
	opts   Options
}

func New(ac access.Control, opts Options) *Module {
	return &Module{access: ac, opts: opts}
}

// CreateProposal appends a proposal and returns its id.
func (m *Module) CreateProposal(st *state.State, caller identity.Identity, description string) (uint64, error) {
	if err := m.access.RequireOwner(OpCreateProposal, caller); err != nil {
		return 0, err
	}
	if !utf8.ValidString(description) {
		return 0, fault.New(fault.KindInvalidArgument, OpCreateProposal, "description is not valid UTF-8")
	}
	clean := strings.TrimSpace(norm.NFC.String(description))
	if clean == "" {
		return 0, fault.New(fault.KindInvalidArgument, OpCreateProposal, "description must not be empty")
	}
	if n := utf8.RuneCountInString(clean); m.opts.MaxDescriptionLength > 0 && n > m.opts.MaxDescriptionLength {
		return 0, fault.New(fault.KindInvalidArgument, OpCreateProposal, "description has %d characters, limit is %d", n, m.opts.MaxDescriptionLength)
	}

	id := uint64(len(st.Proposals))
	st.Proposals = append(st.Proposals, state.Proposal{
		ID:          id,
		Description: description,
		Voters:      make(map[identity.Identity]struct{}),
	})
	return id, nil
}

// Vote records one vote by caller on proposal id.
func (m *Module) Vote(st *state.State, caller identity.Identity, id uint64) error {
	p := st.Proposal(id)
	if p == nil {
		return fault.New(fault.KindNotFound, OpVote, "proposal %d does not exist", id)
	}
	if m.opts.RequireRegisteredVoter {
		if err := m.access.RequireRegistered(OpVote, st, caller); err != nil {
			return err
		}
	}
	if p.HasVoted(caller) {
		return fault.New(fault.KindAlreadyVoted, OpVote, "%s already voted on proposal %d", caller, id)
	}
	if p.Voters == nil {
		p.Voters = make(map[identity.Identity]struct{})
	}
	p.Voters[caller] = struct{}{}
	p.VoteCount++
	return nil
}

// GetProposal returns the public view of proposal id.
func (m *Module) GetProposal(st *state.State, id uint64) (ProposalView, error) {
	p := st.Proposal(id)
	if p == nil {
		return ProposalView{}, fault.New(fault.KindNotFound, OpGetProposal, "proposal %d does not exist", id)
	}
	return view(p), nil
}

// ListProposals returns every proposal in id order.
func (m *Module) ListProposals(st *state.State) []ProposalView {
	out := make([]ProposalView, 0, len(st.Proposals))
	for i := range st.Proposals {
		out = append(out, view(&st.Proposals[i]))
	}
	return out
}

func view(p *state.Proposal) ProposalView {
	return ProposalView{ID: p.ID, Description: p.Description, VoteCount: p.VoteCount}
}

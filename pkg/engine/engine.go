// Package engine is the composition root of the contract.
//
// The Engine owns the single state.State. Every call is applied to a working
// copy under a global lock; the copy replaces the live state only when the
// component accepted the call and the journal, if any, recorded it. A
// rejected call leaves the state hash unchanged.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Mindburn-Labs/charter/pkg/access"
	"github.com/Mindburn-Labs/charter/pkg/datastore"
	"github.com/Mindburn-Labs/charter/pkg/governance"
	"github.com/Mindburn-Labs/charter/pkg/identity"
	"github.com/Mindburn-Labs/charter/pkg/journal"
	"github.com/Mindburn-Labs/charter/pkg/money"
	"github.com/Mindburn-Labs/charter/pkg/observability"
	"github.com/Mindburn-Labs/charter/pkg/policy"
	"github.com/Mindburn-Labs/charter/pkg/registry"
	"github.com/Mindburn-Labs/charter/pkg/state"
	"github.com/Mindburn-Labs/charter/pkg/treasury"
)

// Version is stamped on every journal entry.
const Version = "1.0.0"

var ErrInvalidOwner = errors.New("engine: owner must not be the zero identity")

// Engine applies calls atomically.
type Engine struct {
	mu   sync.Mutex
	st   *state.State
	hash string

	access   access.Control
	registry *registry.Registry
	store    *datastore.Store
	treasury *treasury.Treasury
	gov      *governance.Module
	policy   policy.Policy
	schemas  *schemaSet

	journal journal.Journal
	obs     *observability.Provider
	logger  *slog.Logger
	clock   func() time.Time
	newID   func() string
}

// Option configures an Engine.
type Option func(*Engine)

func WithPolicy(p policy.Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithJournal records every committed call in j.
func WithJournal(j journal.Journal) Option {
	return func(e *Engine) { e.journal = j }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithObservability(p *observability.Provider) Option {
	return func(e *Engine) { e.obs = p }
}

// WithClock overrides the time source for journal timestamps.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithIDGenerator overrides how call ids are assigned when a call has none.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

// New deploys a contract owned by owner with the given endowment.
func New(owner identity.Identity, endowment money.Amount, opts ...Option) (*Engine, error) {
	if owner.IsZero() {
		return nil, ErrInvalidOwner
	}

	e := &Engine{
		policy: policy.Default(),
		clock:  time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.logger = e.logger.With("component", "engine")

	// 1. Policy
	if err := e.policy.Validate(); err != nil {
		return nil, err
	}
	cond, err := policy.CompileCondition(e.policy.TransferCondition)
	if err != nil {
		return nil, err
	}

	// 2. Components
	e.access = access.New(owner)
	e.registry = registry.New(e.access, e.policy.MaxNameLength)
	e.store = datastore.New(e.access, datastore.Options{
		RequireRegisteredWriter: e.policy.RequireRegisteredWriter,
		RequireRegisteredReader: e.policy.RequireRegisteredReader,
	})
	e.treasury = treasury.New(e.access, cond)
	e.gov = governance.New(e.access, governance.Options{
		RequireRegisteredVoter: e.policy.RequireRegisteredVoter,
		MaxDescriptionLength:   e.policy.MaxDescriptionLength,
	})
	if e.schemas, err = compileSchemas(); err != nil {
		return nil, err
	}

	// 3. Observability
	if e.obs == nil {
		if e.obs, err = observability.New(context.Background(), nil); err != nil {
			return nil, err
		}
	}

	// 4. Genesis state
	e.st = state.New(owner, endowment)
	if e.hash, err = e.st.Hash(); err != nil {
		return nil, fmt.Errorf("engine: genesis hash: %w", err)
	}
	return e, nil
}

// Owner returns the deployment owner.
func (e *Engine) Owner() identity.Identity { return e.access.Owner() }

// Policy returns the adopted policy.
func (e *Engine) Policy() policy.Policy { return e.policy }

// StateHash returns the hash of the committed state.
func (e *Engine) StateHash() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hash
}

// Snapshot returns the canonical JSON of the committed state.
func (e *Engine) Snapshot() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.Canonical()
}

// Balance returns the treasury balance.
func (e *Engine) Balance() money.Amount {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.Balance
}

// TreasuryView summarizes the treasury.
type TreasuryView struct {
	Balance  money.Amount `json:"balance"`
	TotalIn  money.Amount `json:"total_in"`
	TotalOut money.Amount `json:"total_out"`
}

func (e *Engine) Treasury() TreasuryView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return TreasuryView{Balance: e.st.Balance, TotalIn: e.st.TotalIn, TotalOut: e.st.TotalOut}
}

// Payout returns how much id has received from the treasury.
func (e *Engine) Payout(id identity.Identity) money.Amount {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.Payouts[id]
}

// Accounts lists accounts in registration order.
func (e *Engine) Accounts() []state.Account {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Accounts(e.st)
}

// Account returns the account for id.
func (e *Engine) Account(id identity.Identity) (state.Account, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Lookup(e.st, id)
}

// ListProposals returns every proposal in id order.
func (e *Engine) ListProposals() []governance.ProposalView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gov.ListProposals(e.st)
}

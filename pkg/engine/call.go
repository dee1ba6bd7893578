package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Mindburn-Labs/charter/pkg/datastore"
	"github.com/Mindburn-Labs/charter/pkg/fault"
	"github.com/Mindburn-Labs/charter/pkg/governance"
	"github.com/Mindburn-Labs/charter/pkg/identity"
	"github.com/Mindburn-Labs/charter/pkg/journal"
	"github.com/Mindburn-Labs/charter/pkg/money"
	"github.com/Mindburn-Labs/charter/pkg/observability"
	"github.com/Mindburn-Labs/charter/pkg/registry"
	"github.com/Mindburn-Labs/charter/pkg/state"
	"github.com/Mindburn-Labs/charter/pkg/treasury"
)

// Operation names.
const (
	OpRegister            = registry.OpRegister
	OpStoreData           = datastore.OpStoreData
	OpRetrieveData        = datastore.OpRetrieveData
	OpDeposit             = treasury.OpDeposit
	OpDistributeFunds     = treasury.OpDistributeFunds
	OpConditionalTransfer = treasury.OpConditionalTransfer
	OpCreateProposal      = governance.OpCreateProposal
	OpVote                = governance.OpVote
	OpGetProposal         = governance.OpGetProposal
)

// Call is one invocation. Caller and Value come from the transport, which
// has already authenticated them.
type Call struct {
	ID     string
	Caller identity.Identity
	Value  money.Amount
	Op     string
	Args   json.RawMessage
}

// Result is the outcome of an accepted call.
type Result struct {
	CallID    string `json:"call_id"`
	Op        string `json:"op"`
	Output    any    `json:"result,omitempty"`
	StateHash string `json:"state_hash"`
	// Sequence is the journal position, zero for reads or without a journal.
	Sequence uint64 `json:"sequence,omitempty"`
}

// Argument payloads.
type (
	RegisterArgs struct {
		Name string `json:"name"`
	}
	StoreDataArgs struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	RetrieveDataArgs struct {
		Key string `json:"key"`
	}
	TransferArgs struct {
		Recipient identity.Identity `json:"recipient"`
		Amount    money.Amount      `json:"amount"`
	}
	CreateProposalArgs struct {
		Description string `json:"description"`
	}
	ProposalArgs struct {
		ProposalID uint64 `json:"proposal_id"`
	}
	emptyArgs struct{}
)

// Output payloads.
type (
	DataValue struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	ProposalCreated struct {
		ProposalID uint64 `json:"proposal_id"`
	}
)

type operation struct {
	payable  bool
	readOnly bool
	apply    func(e *Engine, st *state.State, c Call) (any, error)
}

var operations = map[string]operation{
	OpRegister: {apply: func(e *Engine, st *state.State, c Call) (any, error) {
		var a RegisterArgs
		if err := decodeArgs(c, &a); err != nil {
			return nil, err
		}
		return e.registry.Register(st, c.Caller, a.Name)
	}},
	OpStoreData: {apply: func(e *Engine, st *state.State, c Call) (any, error) {
		var a StoreDataArgs
		if err := decodeArgs(c, &a); err != nil {
			return nil, err
		}
		return nil, e.store.StoreData(st, c.Caller, a.Key, a.Value)
	}},
	OpRetrieveData: {readOnly: true, apply: func(e *Engine, st *state.State, c Call) (any, error) {
		var a RetrieveDataArgs
		if err := decodeArgs(c, &a); err != nil {
			return nil, err
		}
		v, err := e.store.RetrieveData(st, c.Caller, a.Key)
		if err != nil {
			return nil, err
		}
		return DataValue{Key: a.Key, Value: v}, nil
	}},
	OpDeposit: {payable: true, apply: func(e *Engine, st *state.State, c Call) (any, error) {
		if err := decodeArgs(c, &emptyArgs{}); err != nil {
			return nil, err
		}
		return nil, e.treasury.Deposit(st, c.Value)
	}},
	OpDistributeFunds: {payable: true, apply: func(e *Engine, st *state.State, c Call) (any, error) {
		if err := decodeArgs(c, &emptyArgs{}); err != nil {
			return nil, err
		}
		return e.treasury.DistributeFunds(st, c.Caller, c.Value)
	}},
	OpConditionalTransfer: {apply: func(e *Engine, st *state.State, c Call) (any, error) {
		var a TransferArgs
		if err := decodeArgs(c, &a); err != nil {
			return nil, err
		}
		return nil, e.treasury.ConditionalTransfer(st, c.Caller, a.Recipient, a.Amount)
	}},
	OpCreateProposal: {apply: func(e *Engine, st *state.State, c Call) (any, error) {
		var a CreateProposalArgs
		if err := decodeArgs(c, &a); err != nil {
			return nil, err
		}
		id, err := e.gov.CreateProposal(st, c.Caller, a.Description)
		if err != nil {
			return nil, err
		}
		return ProposalCreated{ProposalID: id}, nil
	}},
	OpVote: {apply: func(e *Engine, st *state.State, c Call) (any, error) {
		var a ProposalArgs
		if err := decodeArgs(c, &a); err != nil {
			return nil, err
		}
		return nil, e.gov.Vote(st, c.Caller, a.ProposalID)
	}},
	OpGetProposal: {readOnly: true, apply: func(e *Engine, st *state.State, c Call) (any, error) {
		var a ProposalArgs
		if err := decodeArgs(c, &a); err != nil {
			return nil, err
		}
		return e.gov.GetProposal(st, a.ProposalID)
	}},
}

// Operations lists the supported operation names.
func Operations() []string {
	return []string{
		OpRegister, OpStoreData, OpRetrieveData, OpDeposit, OpDistributeFunds,
		OpConditionalTransfer, OpCreateProposal, OpVote, OpGetProposal,
	}
}

// IsReadOnly reports whether op never changes state.
func IsReadOnly(op string) bool {
	return operations[op].readOnly
}

func decodeArgs(c Call, v any) error {
	if err := json.Unmarshal(c.Args, v); err != nil {
		return fault.New(fault.KindInvalidArgument, c.Op, "decode arguments: %v", err)
	}
	return nil
}

// Execute validates c, applies it atomically and returns its result. Any
// error is a *fault.Error and the committed state is untouched.
func (e *Engine) Execute(ctx context.Context, c Call) (Result, error) {
	if c.ID == "" {
		c.ID = e.newID()
	}
	ctx, finish := e.obs.TrackCall(ctx, c.Op, observability.CallAttributes(c.ID, c.Caller.String())...)

	res, err := e.execute(ctx, c)
	kind := fault.KindOf(err)
	finish(string(kind), err)

	if err != nil {
		e.logger.InfoContext(ctx, "call rejected",
			"call_id", c.ID,
			"op", c.Op,
			"caller", c.Caller.Short(),
			"kind", kind,
			"error", err,
		)
		return Result{}, err
	}
	e.logger.DebugContext(ctx, "call applied",
		"call_id", c.ID,
		"op", c.Op,
		"caller", c.Caller.Short(),
		"state_hash", res.StateHash,
		"sequence", res.Sequence,
	)
	return res, nil
}

func (e *Engine) execute(ctx context.Context, c Call) (Result, error) {
	// 1. Entry checks
	if err := ctx.Err(); err != nil {
		return Result{}, fault.Wrap(fault.KindInternal, c.Op, err)
	}
	op, ok := operations[c.Op]
	if !ok {
		return Result{}, fault.New(fault.KindInvalidArgument, c.Op, "unknown operation %q", c.Op)
	}
	if c.Caller.IsZero() {
		return Result{}, fault.New(fault.KindInvalidArgument, c.Op, "caller must not be the zero identity")
	}
	if !op.payable && !c.Value.IsZero() {
		return Result{}, fault.New(fault.KindInvalidArgument, c.Op, "operation does not accept value, got %s", c.Value)
	}
	args, err := e.schemas.validate(c.Op, c.Args)
	if err != nil {
		return Result{}, err
	}
	c.Args = args

	e.mu.Lock()
	defer e.mu.Unlock()

	// 2. Reads run against the committed state
	if op.readOnly {
		out, err := op.apply(e, e.st, c)
		if err != nil {
			return Result{}, err
		}
		return Result{CallID: c.ID, Op: c.Op, Output: out, StateHash: e.hash}, nil
	}

	// 3. Mutations run against a working copy
	working := e.st.Clone()
	out, err := op.apply(e, working, c)
	if err != nil {
		return Result{}, err
	}
	hash, err := working.Hash()
	if err != nil {
		return Result{}, fault.Wrap(fault.KindInternal, c.Op, err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, fault.Wrap(fault.KindInternal, c.Op, err)
	}

	// 4. Journal, then commit
	var seq uint64
	if e.journal != nil {
		entry, err := e.journal.Append(ctx, journal.Entry{
			CallID:        c.ID,
			Op:            c.Op,
			Caller:        c.Caller,
			Value:         c.Value,
			Args:          c.Args,
			StateHash:     hash,
			EngineVersion: Version,
			CommittedAt:   e.clock(),
		})
		if err != nil {
			return Result{}, fault.Wrap(fault.KindInternal, c.Op, fmt.Errorf("journal append: %w", err))
		}
		seq = entry.Sequence
		observability.AddSpanEvent(ctx, "journal.appended", observability.AttrSequence.Int64(int64(seq)))
	}
	e.st, e.hash = working, hash

	return Result{CallID: c.ID, Op: c.Op, Output: out, StateHash: hash, Sequence: seq}, nil
}

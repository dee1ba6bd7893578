package engine

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/charter/pkg/fault"
	"github.com/Mindburn-Labs/charter/pkg/governance"
	"github.com/Mindburn-Labs/charter/pkg/identity"
	"github.com/Mindburn-Labs/charter/pkg/journal"
	"github.com/Mindburn-Labs/charter/pkg/money"
	"github.com/Mindburn-Labs/charter/pkg/state"
	"github.com/Mindburn-Labs/charter/pkg/treasury"
)

func TestExecute_Generic(t *testing.T) {
	ctx := context.Background()
	e, a := newEngine(t, money.Zero, WithIDGenerator(func() string { return "fixed-id" }))

	res, err := e.Execute(ctx, Call{Caller: a.alice, Op: OpRegister, Args: json.RawMessage(`{"name":"Alice"}`)})
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", res.CallID)
	assert.Equal(t, OpRegister, res.Op)
	assert.Equal(t, state.Account{Identity: a.alice, DisplayName: "Alice"}, res.Output)
	assert.Equal(t, e.StateHash(), res.StateHash)
	assert.Zero(t, res.Sequence)

	res, err = e.Execute(ctx, Call{ID: "mine", Caller: a.owner, Op: OpCreateProposal, Args: json.RawMessage(`{"description":"P1"}`)})
	require.NoError(t, err)
	assert.Equal(t, "mine", res.CallID)
	assert.Equal(t, ProposalCreated{ProposalID: 0}, res.Output)

	res, err = e.Execute(ctx, Call{Caller: a.alice, Op: OpGetProposal, Args: json.RawMessage(`{"proposal_id":0}`)})
	require.NoError(t, err)
	assert.Equal(t, governance.ProposalView{ID: 0, Description: "P1"}, res.Output)
}

func TestExecute_DistributeResult(t *testing.T) {
	ctx := context.Background()
	e, a := newEngine(t, money.FromUint64(10))
	_, err := e.Register(ctx, a.alice, "Alice")
	require.NoError(t, err)

	res, err := e.Execute(ctx, Call{Caller: a.owner, Value: money.FromUint64(1), Op: OpDistributeFunds})
	require.NoError(t, err)
	d := res.Output.(treasury.Distribution)
	assert.Equal(t, "11", d.Share.String())
	assert.True(t, d.Retained.IsZero())
}

func TestExecute_Rejections(t *testing.T) {
	recipient := identity.DevAccounts(3)[2].String()
	tests := []struct {
		name  string
		call  func(actors) Call
		want  error
		inMsg string
	}{
		{
			name: "unknown op",
			call: func(a actors) Call { return Call{Caller: a.alice, Op: "selfDestruct"} },
			want: fault.ErrInvalidArgument, inMsg: "unknown operation",
		},
		{
			name: "zero caller",
			call: func(actors) Call {
				return Call{Caller: identity.Zero, Op: OpRegister, Args: json.RawMessage(`{"name":"x"}`)}
			},
			want: fault.ErrInvalidArgument, inMsg: "zero identity",
		},
		{
			name: "value on non-payable op",
			call: func(a actors) Call {
				return Call{Caller: a.alice, Value: money.FromUint64(1), Op: OpRegister, Args: json.RawMessage(`{"name":"x"}`)}
			},
			want: fault.ErrInvalidArgument, inMsg: "does not accept value",
		},
		{
			name: "malformed json",
			call: func(a actors) Call { return Call{Caller: a.alice, Op: OpRegister, Args: json.RawMessage(`{"name":`)} },
			want: fault.ErrInvalidArgument, inMsg: "malformed",
		},
		{
			name: "missing field",
			call: func(a actors) Call { return Call{Caller: a.alice, Op: OpRegister, Args: json.RawMessage(`{}`)} },
			want: fault.ErrInvalidArgument, inMsg: "arguments rejected",
		},
		{
			name: "wrong type",
			call: func(a actors) Call { return Call{Caller: a.alice, Op: OpRegister, Args: json.RawMessage(`{"name":7}`)} },
			want: fault.ErrInvalidArgument,
		},
		{
			name: "extra field",
			call: func(a actors) Call {
				return Call{Caller: a.alice, Op: OpRegister, Args: json.RawMessage(`{"name":"x","admin":true}`)}
			},
			want: fault.ErrInvalidArgument,
		},
		{
			name: "negative amount",
			call: func(a actors) Call {
				return Call{Caller: a.owner, Op: OpConditionalTransfer, Args: json.RawMessage(`{"recipient":"` + recipient + `","amount":"-1"}`)}
			},
			want: fault.ErrInvalidArgument,
		},
		{
			name: "amount above 256 bits",
			call: func(a actors) Call {
				huge := strings.Repeat("9", 80)
				return Call{Caller: a.owner, Op: OpConditionalTransfer, Args: json.RawMessage(`{"recipient":"` + recipient + `","amount":"` + huge + `"}`)}
			},
			want: fault.ErrInvalidArgument,
		},
		{
			name: "bad recipient",
			call: func(a actors) Call {
				return Call{Caller: a.owner, Op: OpConditionalTransfer, Args: json.RawMessage(`{"recipient":"bob","amount":"1"}`)}
			},
			want: fault.ErrInvalidArgument,
		},
		{
			name: "negative proposal id",
			call: func(a actors) Call { return Call{Caller: a.alice, Op: OpVote, Args: json.RawMessage(`{"proposal_id":-1}`)} },
			want: fault.ErrInvalidArgument,
		},
		{
			name: "fractional proposal id",
			call: func(a actors) Call { return Call{Caller: a.alice, Op: OpVote, Args: json.RawMessage(`{"proposal_id":1.5}`)} },
			want: fault.ErrInvalidArgument,
		},
		{
			name: "zero deposit",
			call: func(a actors) Call { return Call{Caller: a.alice, Op: OpDeposit} },
			want: fault.ErrInvalidArgument,
		},
		{
			name: "arguments not an object",
			call: func(a actors) Call { return Call{Caller: a.alice, Op: OpRegister, Args: json.RawMessage(`["Alice"]`)} },
			want: fault.ErrInvalidArgument,
		},
		{
			name: "invalid utf8 value",
			call: func(a actors) Call {
				return Call{Caller: a.alice, Op: OpStoreData, Args: json.RawMessage("{\"key\":\"k\",\"value\":\"a\xffb\"}")}
			},
			want: fault.ErrInvalidArgument, inMsg: "UTF-8",
		},
		{
			name: "trailing data",
			call: func(a actors) Call { return Call{Caller: a.alice, Op: OpRegister, Args: json.RawMessage(`{"name":"A"} {"name":"B"}`)} },
			want: fault.ErrInvalidArgument, inMsg: "malformed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, a := newEngine(t, money.Ether(1))
			requireUnchanged(t, e, tt.want, func() error {
				_, err := e.Execute(context.Background(), tt.call(a))
				if err != nil && tt.inMsg != "" {
					assert.Contains(t, err.Error(), tt.inMsg)
				}
				return err
			})
		})
	}
}

func TestTyped_RejectsInvalidUTF8(t *testing.T) {
	ctx := context.Background()
	e, a := newEngine(t, money.Zero)
	_, err := e.Register(ctx, a.alice, "Alice")
	require.NoError(t, err)

	requireUnchanged(t, e, fault.ErrInvalidArgument, func() error {
		return e.StoreData(ctx, a.alice, "k", "a\xffb")
	})
	requireUnchanged(t, e, fault.ErrInvalidArgument, func() error {
		return e.StoreData(ctx, a.alice, "k\xfe", "x")
	})
	requireUnchanged(t, e, fault.ErrInvalidArgument, func() error {
		_, err := e.Register(ctx, a.bob, "B\xffb")
		return err
	})
	requireUnchanged(t, e, fault.ErrInvalidArgument, func() error {
		_, err := e.CreateProposal(ctx, a.owner, "P\xff")
		return err
	})

	// distinct invalid keys must not alias one record
	require.NoError(t, e.StoreData(ctx, a.alice, "k\u00fe", "x"))
	_, err = e.RetrieveData(ctx, a.alice, "k\xfd")
	assert.ErrorIs(t, err, fault.ErrInvalidArgument)
	v, err := e.RetrieveData(ctx, a.alice, "k\u00fe")
	require.NoError(t, err)
	assert.Equal(t, "x", v)
}

func TestExecute_CancelledContext(t *testing.T) {
	e, a := newEngine(t, money.Zero)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	requireUnchanged(t, e, fault.ErrInternal, func() error {
		_, err := e.Register(ctx, a.alice, "Alice")
		return err
	})
}

func TestExecute_JournalRecordsCommits(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	j := journal.NewMemory()
	e, a := newEngine(t, money.Zero, WithJournal(j), WithClock(func() time.Time { return now }))

	res, err := e.Execute(ctx, Call{Caller: a.alice, Op: OpRegister, Args: json.RawMessage(`{ "name" : "Alice" }`)})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Sequence)

	// reads and rejections are not journaled
	_, _ = e.RetrieveData(ctx, a.alice, "k")
	_, _ = e.Register(ctx, a.alice, "Alice")

	entries, err := j.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	got := entries[0]
	assert.Equal(t, OpRegister, got.Op)
	assert.Equal(t, a.alice, got.Caller)
	assert.JSONEq(t, `{"name":"Alice"}`, string(got.Args))
	assert.Equal(t, `{"name":"Alice"}`, string(got.Args), "arguments are stored compact")
	assert.Equal(t, e.StateHash(), got.StateHash)
	assert.Equal(t, Version, got.EngineVersion)
	assert.True(t, now.Equal(got.CommittedAt))
	assert.NoError(t, journal.Verify(entries))
}

func TestExecute_JournalFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	j := journal.NewMemory()
	e, a := newEngine(t, money.Zero, WithJournal(j))

	j.FailNext(errors.New("disk full"))
	requireUnchanged(t, e, fault.ErrInternal, func() error {
		_, err := e.Register(ctx, a.alice, "Alice")
		return err
	})
	assert.Equal(t, fault.Retryable, fault.KindInternal.Classify())

	// the retry succeeds once the journal recovers
	_, err := e.Register(ctx, a.alice, "Alice")
	require.NoError(t, err)
	entries, _ := j.Entries(ctx)
	assert.Len(t, entries, 1)
}

func TestOperations(t *testing.T) {
	ops := Operations()
	assert.Len(t, ops, len(argumentSchemas))
	for _, op := range ops {
		_, ok := operations[op]
		assert.True(t, ok, op)
	}
	assert.True(t, IsReadOnly(OpRetrieveData))
	assert.True(t, IsReadOnly(OpGetProposal))
	assert.False(t, IsReadOnly(OpVote))
	assert.False(t, IsReadOnly("nope"))
}

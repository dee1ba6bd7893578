package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/Mindburn-Labs/charter/pkg/fault"
	"github.com/Mindburn-Labs/charter/pkg/governance"
	"github.com/Mindburn-Labs/charter/pkg/identity"
	"github.com/Mindburn-Labs/charter/pkg/money"
	"github.com/Mindburn-Labs/charter/pkg/state"
	"github.com/Mindburn-Labs/charter/pkg/treasury"
)

// The typed entry points build a Call and run it through Execute, so they
// are validated, journaled and traced exactly like generic calls.

func (e *Engine) call(ctx context.Context, caller identity.Identity, value money.Amount, op string, args any) (Result, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return Result{}, fault.Wrap(fault.KindInternal, op, fmt.Errorf("encode arguments: %w", err))
	}
	return e.Execute(ctx, Call{Caller: caller, Value: value, Op: op, Args: raw})
}

// requireUTF8 rejects text that json.Marshal would rewrite to U+FFFD, so
// typed and generic calls see the same bytes.
func requireUTF8(op string, fields ...string) error {
	for _, f := range fields {
		if !utf8.ValidString(f) {
			return fault.New(fault.KindInvalidArgument, op, "arguments are not valid UTF-8")
		}
	}
	return nil
}

func (e *Engine) Register(ctx context.Context, caller identity.Identity, name string) (state.Account, error) {
	if err := requireUTF8(OpRegister, name); err != nil {
		return state.Account{}, err
	}
	res, err := e.call(ctx, caller, money.Zero, OpRegister, RegisterArgs{Name: name})
	if err != nil {
		return state.Account{}, err
	}
	return res.Output.(state.Account), nil
}

func (e *Engine) StoreData(ctx context.Context, caller identity.Identity, key, value string) error {
	if err := requireUTF8(OpStoreData, key, value); err != nil {
		return err
	}
	_, err := e.call(ctx, caller, money.Zero, OpStoreData, StoreDataArgs{Key: key, Value: value})
	return err
}

func (e *Engine) RetrieveData(ctx context.Context, caller identity.Identity, key string) (string, error) {
	if err := requireUTF8(OpRetrieveData, key); err != nil {
		return "", err
	}
	res, err := e.call(ctx, caller, money.Zero, OpRetrieveData, RetrieveDataArgs{Key: key})
	if err != nil {
		return "", err
	}
	return res.Output.(DataValue).Value, nil
}

// Deposit credits the attached amount to the treasury.
func (e *Engine) Deposit(ctx context.Context, caller identity.Identity, amount money.Amount) error {
	_, err := e.call(ctx, caller, amount, OpDeposit, emptyArgs{})
	return err
}

// DistributeFunds credits attached and splits the balance over all accounts.
func (e *Engine) DistributeFunds(ctx context.Context, caller identity.Identity, attached money.Amount) (treasury.Distribution, error) {
	res, err := e.call(ctx, caller, attached, OpDistributeFunds, emptyArgs{})
	if err != nil {
		return treasury.Distribution{}, err
	}
	return res.Output.(treasury.Distribution), nil
}

func (e *Engine) ConditionalTransfer(ctx context.Context, caller, recipient identity.Identity, amount money.Amount) error {
	_, err := e.call(ctx, caller, money.Zero, OpConditionalTransfer, TransferArgs{Recipient: recipient, Amount: amount})
	return err
}

func (e *Engine) CreateProposal(ctx context.Context, caller identity.Identity, description string) (uint64, error) {
	if err := requireUTF8(OpCreateProposal, description); err != nil {
		return 0, err
	}
	res, err := e.call(ctx, caller, money.Zero, OpCreateProposal, CreateProposalArgs{Description: description})
	if err != nil {
		return 0, err
	}
	return res.Output.(ProposalCreated).ProposalID, nil
}

func (e *Engine) Vote(ctx context.Context, caller identity.Identity, id uint64) error {
	_, err := e.call(ctx, caller, money.Zero, OpVote, ProposalArgs{ProposalID: id})
	return err
}

func (e *Engine) GetProposal(ctx context.Context, caller identity.Identity, id uint64) (governance.ProposalView, error) {
	res, err := e.call(ctx, caller, money.Zero, OpGetProposal, ProposalArgs{ProposalID: id})
	if err != nil {
		return governance.ProposalView{}, err
	}
	return res.Output.(governance.ProposalView), nil
}

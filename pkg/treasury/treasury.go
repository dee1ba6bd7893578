// Package treasury moves funds in and out of the contract balance.
//
// Every credit adds to TotalIn and every debit adds to TotalOut and to the
// recipient's payout, so TotalIn == TotalOut + Balance holds after each call.
package treasury

import (
	"errors"

	"github.com/Mindburn-Labs/charter/pkg/access"
	"github.com/Mindburn-Labs/charter/pkg/fault"
	"github.com/Mindburn-Labs/charter/pkg/identity"
	"github.com/Mindburn-Labs/charter/pkg/money"
	"github.com/Mindburn-Labs/charter/pkg/policy"
	"github.com/Mindburn-Labs/charter/pkg/state"
)

const (
	OpDeposit             = "deposit"
	OpDistributeFunds     = "distributeFunds"
	OpConditionalTransfer = "conditionalTransfer"
)

// Distribution reports the outcome of DistributeFunds.
type Distribution struct {
	Share       money.Amount        `json:"share"`
	Recipients  []identity.Identity `json:"recipients"`
	Distributed money.Amount        `json:"distributed"`
	Retained    money.Amount        `json:"retained"`
}

// Treasury holds no balance itself; it works on the borrowed state.
type Treasury struct {
	access    access.Control
	condition *policy.Condition
}

// New returns a Treasury. A nil condition uses the default.
func New(ac access.Control, cond *policy.Condition) *Treasury {
	if cond == nil {
		cond = policy.MustCompileCondition(policy.DefaultTransferCondition)
	}
	return &Treasury{access: ac, condition: cond}
}

// Deposit credits amount to the balance.
func (t *Treasury) Deposit(st *state.State, amount money.Amount) error {
	if amount.IsZero() {
		return fault.New(fault.KindInvalidArgument, OpDeposit, "deposit amount must be positive")
	}
	return credit(OpDeposit, st, amount)
}

// DistributeFunds credits attached, then pays every account an equal share
// of the whole balance in registration order. The remainder stays.
func (t *Treasury) DistributeFunds(st *state.State, caller identity.Identity, attached money.Amount) (Distribution, error) {
	// 1. Authorization and recipients
	if err := t.access.RequireOwner(OpDistributeFunds, caller); err != nil {
		return Distribution{}, err
	}
	n := uint64(len(st.AccountOrder))
	if n == 0 {
		return Distribution{}, fault.New(fault.KindNoRecipients, OpDistributeFunds, "no registered accounts")
	}

	// 2. Credit the attached value
	if !attached.IsZero() {
		if err := credit(OpDistributeFunds, st, attached); err != nil {
			return Distribution{}, err
		}
	}

	// 3. Split
	share, retained, err := st.Balance.Split(n)
	if err != nil {
		return Distribution{}, fault.Wrap(fault.KindInternal, OpDistributeFunds, err)
	}
	distributed, err := share.MulUint64(n)
	if err != nil {
		return Distribution{}, fault.Wrap(fault.KindInternal, OpDistributeFunds, err)
	}

	// 4. Pay out
	recipients := append([]identity.Identity(nil), st.AccountOrder...)
	if !share.IsZero() {
		for _, id := range recipients {
			if err := debit(OpDistributeFunds, st, id, share); err != nil {
				return Distribution{}, err
			}
		}
	}

	return Distribution{
		Share:       share,
		Recipients:  recipients,
		Distributed: distributed,
		Retained:    retained,
	}, nil
}

// ConditionalTransfer pays amount to recipient when the balance covers it
// and the transfer condition holds.
func (t *Treasury) ConditionalTransfer(st *state.State, caller, recipient identity.Identity, amount money.Amount) error {
	if err := t.access.RequireOwner(OpConditionalTransfer, caller); err != nil {
		return err
	}
	if amount.IsZero() {
		return fault.New(fault.KindInvalidArgument, OpConditionalTransfer, "transfer amount must be positive")
	}
	if recipient.IsZero() {
		return fault.New(fault.KindInvalidArgument, OpConditionalTransfer, "recipient must not be the zero identity")
	}
	if amount.Gt(st.Balance) {
		return fault.New(fault.KindInsufficientFunds, OpConditionalTransfer, "amount %s exceeds balance %s", amount, st.Balance)
	}

	ok, err := t.condition.Eval(policy.TransferInput{
		Balance:    st.Balance,
		Amount:     amount,
		Recipient:  recipient,
		Registered: t.access.IsRegistered(st, recipient),
		Owner:      t.access.Owner(),
	})
	if err != nil {
		return fault.Wrap(fault.KindConditionNotMet, OpConditionalTransfer, err)
	}
	if !ok {
		return fault.New(fault.KindConditionNotMet, OpConditionalTransfer, "condition %q not met", t.condition.Expr())
	}

	return debit(OpConditionalTransfer, st, recipient, amount)
}

func credit(op string, st *state.State, amount money.Amount) error {
	balance, err := st.Balance.Add(amount)
	if err != nil {
		return overflow(op, err)
	}
	totalIn, err := st.TotalIn.Add(amount)
	if err != nil {
		return overflow(op, err)
	}
	st.Balance, st.TotalIn = balance, totalIn
	return nil
}

func debit(op string, st *state.State, to identity.Identity, amount money.Amount) error {
	balance, err := st.Balance.Sub(amount)
	if err != nil {
		return fault.New(fault.KindInsufficientFunds, op, "amount %s exceeds balance %s", amount, st.Balance)
	}
	totalOut, err := st.TotalOut.Add(amount)
	if err != nil {
		return overflow(op, err)
	}
	paid, err := st.Payouts[to].Add(amount)
	if err != nil {
		return overflow(op, err)
	}
	st.Balance, st.TotalOut = balance, totalOut
	st.Payouts[to] = paid
	return nil
}

func overflow(op string, err error) error {
	if errors.Is(err, money.ErrOverflow) {
		return fault.New(fault.KindInvalidArgument, op, "amount overflows the treasury")
	}
	return fault.Wrap(fault.KindInternal, op, err)
}

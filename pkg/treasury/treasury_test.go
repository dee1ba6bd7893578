package treasury

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/charter/pkg/access"
	"github.com/Mindburn-Labs/charter/pkg/fault"
	"github.com/Mindburn-Labs/charter/pkg/identity"
	"github.com/Mindburn-Labs/charter/pkg/money"
	"github.com/Mindburn-Labs/charter/pkg/policy"
	"github.com/Mindburn-Labs/charter/pkg/state"
)

const maxUint256 = "115792089237316195423570985008687907853269984665640564039457584007913129639935"

type fixture struct {
	tr    *Treasury
	st    *state.State
	owner identity.Identity
	ids   []identity.Identity
}

func newFixture(t *testing.T, endowment money.Amount, accounts int) fixture {
	t.Helper()
	ids := identity.DevAccounts(accounts + 2)
	st := state.New(ids[0], endowment)
	for _, id := range ids[1 : accounts+1] {
		st.Accounts[id] = state.Account{Identity: id, DisplayName: id.Short()}
		st.AccountOrder = append(st.AccountOrder, id)
	}
	return fixture{tr: New(access.New(ids[0]), nil), st: st, owner: ids[0], ids: ids}
}

func TestDeposit(t *testing.T) {
	f := newFixture(t, money.Ether(1), 0)
	require.NoError(t, f.tr.Deposit(f.st, money.Ether(2)))
	assert.Equal(t, 0, f.st.Balance.Cmp(money.Ether(3)))
	assert.Equal(t, 0, f.st.TotalIn.Cmp(money.Ether(3)))
	require.NoError(t, f.st.Check())

	assert.ErrorIs(t, f.tr.Deposit(f.st, money.Zero), fault.ErrInvalidArgument)
}

func TestDeposit_Overflow(t *testing.T) {
	f := newFixture(t, money.MustParse(maxUint256), 0)
	err := f.tr.Deposit(f.st, money.FromUint64(1))
	assert.ErrorIs(t, err, fault.ErrInvalidArgument)
	assert.Equal(t, maxUint256, f.st.Balance.String())
}

func TestDistribute_EqualShares(t *testing.T) {
	f := newFixture(t, money.Ether(10), 2)

	d, err := f.tr.DistributeFunds(f.st, f.owner, money.Ether(5))
	require.NoError(t, err)

	assert.Equal(t, "7500000000000000000", d.Share.String())
	assert.Equal(t, []identity.Identity{f.ids[1], f.ids[2]}, d.Recipients)
	assert.Equal(t, 0, d.Distributed.Cmp(money.Ether(15)))
	assert.True(t, d.Retained.IsZero())
	assert.True(t, f.st.Balance.IsZero())
	assert.Equal(t, "7500000000000000000", f.st.Payouts[f.ids[1]].String())
	assert.Equal(t, "7500000000000000000", f.st.Payouts[f.ids[2]].String())
	require.NoError(t, f.st.Check())
}

func TestDistribute_RemainderRetained(t *testing.T) {
	f := newFixture(t, money.FromUint64(10), 3)

	d, err := f.tr.DistributeFunds(f.st, f.owner, money.Zero)
	require.NoError(t, err)
	assert.Equal(t, "3", d.Share.String())
	assert.Equal(t, "9", d.Distributed.String())
	assert.Equal(t, "1", d.Retained.String())
	assert.Equal(t, "1", f.st.Balance.String())
	require.NoError(t, f.st.Check())
}

func TestDistribute_ShareBelowOne(t *testing.T) {
	f := newFixture(t, money.FromUint64(2), 3)

	d, err := f.tr.DistributeFunds(f.st, f.owner, money.Zero)
	require.NoError(t, err)
	assert.True(t, d.Share.IsZero())
	assert.Equal(t, "2", d.Retained.String())
	assert.Empty(t, f.st.Payouts)
	require.NoError(t, f.st.Check())
}

func TestDistribute_NotOwner(t *testing.T) {
	f := newFixture(t, money.Ether(10), 2)
	_, err := f.tr.DistributeFunds(f.st, f.ids[1], money.Zero)
	assert.ErrorIs(t, err, fault.ErrUnauthorized)
	assert.Equal(t, 0, f.st.Balance.Cmp(money.Ether(10)))
}

func TestDistribute_NoRecipients(t *testing.T) {
	f := newFixture(t, money.Ether(10), 0)
	_, err := f.tr.DistributeFunds(f.st, f.owner, money.Ether(1))
	assert.ErrorIs(t, err, fault.ErrNoRecipients)
	assert.Equal(t, 0, f.st.Balance.Cmp(money.Ether(10)), "attached value is not credited on failure")
}

func TestTransfer(t *testing.T) {
	f := newFixture(t, money.Ether(10), 1)
	to := f.ids[1]

	require.NoError(t, f.tr.ConditionalTransfer(f.st, f.owner, to, money.Ether(1)))
	assert.Equal(t, 0, f.st.Balance.Cmp(money.Ether(9)))
	assert.Equal(t, 0, f.st.Payouts[to].Cmp(money.Ether(1)))
	require.NoError(t, f.st.Check())
}

func TestTransfer_WholeBalance(t *testing.T) {
	f := newFixture(t, money.Ether(2), 0)
	require.NoError(t, f.tr.ConditionalTransfer(f.st, f.owner, f.ids[1], money.Ether(2)))
	assert.True(t, f.st.Balance.IsZero())
}

func TestTransfer_Rejections(t *testing.T) {
	tests := []struct {
		name      string
		caller    func(fixture) identity.Identity
		recipient func(fixture) identity.Identity
		amount    money.Amount
		want      error
	}{
		{
			name:      "not owner",
			caller:    func(f fixture) identity.Identity { return f.ids[1] },
			recipient: func(f fixture) identity.Identity { return f.ids[1] },
			amount:    money.Ether(1),
			want:      fault.ErrUnauthorized,
		},
		{
			name:      "not owner checked before amount",
			caller:    func(f fixture) identity.Identity { return f.ids[1] },
			recipient: func(f fixture) identity.Identity { return f.ids[1] },
			amount:    money.Ether(100),
			want:      fault.ErrUnauthorized,
		},
		{
			name:      "zero amount",
			caller:    func(f fixture) identity.Identity { return f.owner },
			recipient: func(f fixture) identity.Identity { return f.ids[1] },
			amount:    money.Zero,
			want:      fault.ErrInvalidArgument,
		},
		{
			name:      "zero recipient",
			caller:    func(f fixture) identity.Identity { return f.owner },
			recipient: func(fixture) identity.Identity { return identity.Zero },
			amount:    money.Ether(1),
			want:      fault.ErrInvalidArgument,
		},
		{
			name:      "insufficient",
			caller:    func(f fixture) identity.Identity { return f.owner },
			recipient: func(f fixture) identity.Identity { return f.ids[1] },
			amount:    money.Ether(11),
			want:      fault.ErrInsufficientFunds,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, money.Ether(10), 1)
			err := f.tr.ConditionalTransfer(f.st, tt.caller(f), tt.recipient(f), tt.amount)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 0, f.st.Balance.Cmp(money.Ether(10)))
			assert.Empty(t, f.st.Payouts)
		})
	}
}

func TestTransfer_CustomCondition(t *testing.T) {
	f := newFixture(t, money.Ether(10), 1)
	f.tr = New(access.New(f.owner), policy.MustCompileCondition("amount <= balance && registered"))

	err := f.tr.ConditionalTransfer(f.st, f.owner, f.ids[2], money.Ether(1))
	assert.ErrorIs(t, err, fault.ErrConditionNotMet)
	assert.Equal(t, 0, f.st.Balance.Cmp(money.Ether(10)))

	require.NoError(t, f.tr.ConditionalTransfer(f.st, f.owner, f.ids[1], money.Ether(1)))
}

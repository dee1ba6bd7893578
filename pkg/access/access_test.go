package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Mindburn-Labs/charter/pkg/fault"
	"github.com/Mindburn-Labs/charter/pkg/identity"
	"github.com/Mindburn-Labs/charter/pkg/money"
	"github.com/Mindburn-Labs/charter/pkg/state"
)

func TestOwner(t *testing.T) {
	ids := identity.DevAccounts(2)
	c := New(ids[0])

	assert.Equal(t, ids[0], c.Owner())
	assert.True(t, c.IsOwner(ids[0]))
	assert.False(t, c.IsOwner(ids[1]))
	assert.NoError(t, c.RequireOwner("createProposal", ids[0]))

	err := c.RequireOwner("createProposal", ids[1])
	assert.ErrorIs(t, err, fault.ErrUnauthorized)
	assert.Contains(t, err.Error(), "createProposal")
}

func TestOwner_ZeroNeverOwns(t *testing.T) {
	c := New(identity.Zero)
	assert.False(t, c.IsOwner(identity.Zero))
}

func TestRegistered(t *testing.T) {
	ids := identity.DevAccounts(2)
	c := New(ids[0])
	st := state.New(ids[0], money.Zero)
	st.Accounts[ids[1]] = state.Account{Identity: ids[1], DisplayName: "Alice"}
	st.AccountOrder = append(st.AccountOrder, ids[1])

	assert.True(t, c.IsRegistered(st, ids[1]))
	assert.False(t, c.IsRegistered(st, ids[0]), "owner is not implicitly registered")
	assert.NoError(t, c.RequireRegistered("storeData", st, ids[1]))
	assert.ErrorIs(t, c.RequireRegistered("storeData", st, ids[0]), fault.ErrUnauthorized)
}

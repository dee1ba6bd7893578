// Package access holds the ownership and registration predicates shared by
// every component. Predicates never mutate state.
package access

import (
	"github.com/Mindburn-Labs/charter/pkg/fault"
	"github.com/Mindburn-Labs/charter/pkg/identity"
	"github.com/Mindburn-Labs/charter/pkg/state"
)

// Control answers who may do what. The owner is fixed at deployment.
type Control struct {
	owner identity.Identity
}

// New returns a Control for the deployed owner.
func New(owner identity.Identity) Control {
	return Control{owner: owner}
}

// Owner returns the deployment owner.
func (c Control) Owner() identity.Identity {
	return c.owner
}

func (c Control) IsOwner(id identity.Identity) bool {
	return !id.IsZero() && id == c.owner
}

// RequireOwner fails with Unauthorized unless id is the owner.
func (c Control) RequireOwner(op string, id identity.Identity) error {
	if !c.IsOwner(id) {
		return fault.New(fault.KindUnauthorized, op, "caller %s is not the owner", id)
	}
	return nil
}

func (c Control) IsRegistered(st *state.State, id identity.Identity) bool {
	_, ok := st.Accounts[id]
	return ok
}

// RequireRegistered fails with Unauthorized unless id has an account.
func (c Control) RequireRegistered(op string, st *state.State, id identity.Identity) error {
	if !c.IsRegistered(st, id) {
		return fault.New(fault.KindUnauthorized, op, "caller %s is not registered", id)
	}
	return nil
}

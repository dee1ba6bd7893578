// Package registry records one account per identity.
package registry

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
	OpRegister = "register"
	OpLookup   = "lookup"
)

// Registry owns account creation. It keeps no state of its own.
type Registry struct {
	access  access.Control
	maxName int
}

// New returns a Registry. maxName bounds display names in runes.
func New(ac access.Control, maxName int) *Registry {
	return &Registry{access: ac, maxName: maxName}
}

// Register creates an account for id. An existing account is reported as
// AlreadyRegistered before the name is looked at.
func (r *Registry) Register(st *state.State, id identity.Identity, name string) (state.Account, error) {
	if r.access.IsRegistered(st, id) {
		return state.Account{}, fault.New(fault.KindAlreadyRegistered, OpRegister, "identity %s already has an account", id)
	}

	if err := r.checkName(name); err != nil {
		return state.Account{}, err
	}

	acct := state.Account{Identity: id, DisplayName: name}
	st.Accounts[id] = acct
	st.AccountOrder = append(st.AccountOrder, id)
	return acct, nil
}

// checkName applies the empty and length rules to the trimmed NFC form of
// name. The stored name is the submitted one.
func (r *Registry) checkName(name string) error {
	if !utf8.ValidString(name) {
		return fault.New(fault.KindInvalidArgument, OpRegister, "name is not valid UTF-8")
	}
	clean := strings.TrimSpace(norm.NFC.String(name))
	if clean == "" {
		return fault.New(fault.KindInvalidArgument, OpRegister, "name must not be empty")
	}
	if n := utf8.RuneCountInString(clean); r.maxName > 0 && n > r.maxName {
		return fault.New(fault.KindInvalidArgument, OpRegister, "name has %d characters, limit is %d", n, r.maxName)
	}
	return nil
}

func (r *Registry) IsRegistered(st *state.State, id identity.Identity) bool {
	return r.access.IsRegistered(st, id)
}

// Lookup returns the account for id.
func (r *Registry) Lookup(st *state.State, id identity.Identity) (state.Account, error) {
	acct, ok := st.Accounts[id]
	if !ok {
		return state.Account{}, fault.New(fault.KindNotFound, OpLookup, "no account for %s", id)
	}
	return acct, nil
}

// Accounts lists accounts in registration order.
func (r *Registry) Accounts(st *state.State) []state.Account {
	out := make([]state.Account, 0, len(st.AccountOrder))
	for _, id := range st.AccountOrder {
		out = append(out, st.Accounts[id])
	}
	return out
}

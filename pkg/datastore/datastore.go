// Package datastore keeps one string value per (owner, key).
package datastore

import (
	"unicode/utf8"

	"github.com/Mindburn-Labs/charter/pkg/access"
	"github.com/Mindburn-Labs/charter/pkg/fault"
	"github.com/Mindburn-Labs/charter/pkg/identity"
	"github.com/Mindburn-Labs/charter/pkg/state"
)

const (
	OpStoreData    = "storeData"
	OpRetrieveData = "retrieveData"
)

// Options selects which calls need a registered caller.
type Options struct {
	RequireRegisteredWriter bool
	RequireRegisteredReader bool
}

// Store reads and writes records in the borrowed state. Keys and values are
// kept byte-exact and must be valid UTF-8.
type Store struct {
	access access.Control
	opts   Options
}

func New(ac access.Control, opts Options) *Store {
	return &Store{access: ac, opts: opts}
}

// StoreData sets (caller, key) to value, replacing any previous value.
func (s *Store) StoreData(st *state.State, caller identity.Identity, key, value string) error {
	if s.opts.RequireRegisteredWriter {
		if err := s.access.RequireRegistered(OpStoreData, st, caller); err != nil {
			return err
		}
	}
	if key == "" {
		return fault.New(fault.KindInvalidArgument, OpStoreData, "key must not be empty")
	}
	if !utf8.ValidString(key) || !utf8.ValidString(value) {
		return fault.New(fault.KindInvalidArgument, OpStoreData, "key and value must be valid UTF-8")
	}
	st.Records[state.RecordKey{Owner: caller, Key: key}] = value
	return nil
}

// RetrieveData returns the value stored under (caller, key).
func (s *Store) RetrieveData(st *state.State, caller identity.Identity, key string) (string, error) {
	if s.opts.RequireRegisteredReader {
		if err := s.access.RequireRegistered(OpRetrieveData, st, caller); err != nil {
			return "", err
		}
	}
	if !utf8.ValidString(key) {
		return "", fault.New(fault.KindInvalidArgument, OpRetrieveData, "key must be valid UTF-8")
	}
	v, ok := st.Records[state.RecordKey{Owner: caller, Key: key}]
	if !ok {
		return "", fault.New(fault.KindNotFound, OpRetrieveData, "no value for key %q", key)
	}
	return v, nil
}

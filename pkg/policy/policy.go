// Package policy carries the tunable rules adopted at deployment.
package policy

import (
	"fmt"
)

const (
	DefaultMaxNameLength        = 128
	DefaultMaxDescriptionLength = 4096
	// DefaultTransferCondition admits any transfer the treasury can cover.
	DefaultTransferCondition = "amount <= balance"
)

// Policy is fixed for the lifetime of an engine.
type Policy struct {
	// RequireRegisteredWriter gates storeData on registration.
	RequireRegisteredWriter bool `yaml:"require_registered_writer" json:"require_registered_writer"`
	// RequireRegisteredReader gates retrieveData on registration.
	RequireRegisteredReader bool `yaml:"require_registered_reader" json:"require_registered_reader"`
	// RequireRegisteredVoter gates vote on registration.
	RequireRegisteredVoter bool `yaml:"require_registered_voter" json:"require_registered_voter"`

	// MaxNameLength and MaxDescriptionLength count runes after normalization.
	MaxNameLength        int `yaml:"max_name_length" json:"max_name_length"`
	MaxDescriptionLength int `yaml:"max_description_length" json:"max_description_length"`

	// TransferCondition is a CEL expression over balance, amount, recipient,
	// registered and owner. It must evaluate to bool.
	TransferCondition string `yaml:"transfer_condition" json:"transfer_condition"`
}

// Default returns the deployment defaults.
func Default() Policy {
	return Policy{
		RequireRegisteredWriter: true,
		MaxNameLength:           DefaultMaxNameLength,
		MaxDescriptionLength:    DefaultMaxDescriptionLength,
		TransferCondition:       DefaultTransferCondition,
	}
}

// Validate rejects unusable limits and fills zero values with defaults.
func (p *Policy) Validate() error {
	if p.MaxNameLength < 0 {
		return fmt.Errorf("policy: max_name_length must be positive, got %d", p.MaxNameLength)
	}
	if p.MaxDescriptionLength < 0 {
		return fmt.Errorf("policy: max_description_length must be positive, got %d", p.MaxDescriptionLength)
	}
	if p.MaxNameLength == 0 {
		p.MaxNameLength = DefaultMaxNameLength
	}
	if p.MaxDescriptionLength == 0 {
		p.MaxDescriptionLength = DefaultMaxDescriptionLength
	}
	if p.TransferCondition == "" {
		p.TransferCondition = DefaultTransferCondition
	}
	return nil
}

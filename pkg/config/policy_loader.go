package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Mindburn-Labs/charter/pkg/policy"
)

// LoadPolicy reads a YAML policy profile. Fields absent from the file keep
// their defaults. An empty path returns the defaults.
func LoadPolicy(path string) (policy.Policy, error) {
	p := policy.Default()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return policy.Policy{}, fmt.Errorf("failed to read policy %s: %w", path, err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes a YAML policy document over the defaults.
func ParsePolicy(data []byte) (policy.Policy, error) {
	p := policy.Default()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return policy.Policy{}, fmt.Errorf("failed to parse policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return policy.Policy{}, err
	}
	if _, err := policy.CompileCondition(p.TransferCondition); err != nil {
		return policy.Policy{}, err
	}
	return p, nil
}

// pkg/registry/registry.go
package registry

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

func LoadRegistry(path string) (*RuleRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a rule registry from YAML (JSON is accepted as well).
// Unknown keys are rejected so a typo cannot silently disable a table.
func Parse(data []byte) (*RuleRegistry, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var reg RuleRegistry
	if err := dec.Decode(&reg); err != nil {
		return nil, fmt.Errorf("decode rule registry: %w", err)
	}
	if reg.Version == "" {
		return nil, fmt.Errorf("rule registry has no version")
	}
	return &reg, nil
}

// Save writes the registry back as YAML and stamps LastUpdated.
func Save(path string, reg *RuleRegistry) error {
	reg.LastUpdated = time.Now().UTC().Format(time.RFC3339)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(reg); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Registration returns the rule for key, or nil.
func (r *RuleRegistry) Registration(key string) *RegistrationRule {
	for i := range r.Registrations {
		if r.Registrations[i].Key == key {
			return &r.Registrations[i]
		}
	}
	return nil
}

// Intent returns the intent rule named name, or nil.
func (r *RuleRegistry) Intent(name string) *IntentRule {
	for i := range r.Intents {
		if r.Intents[i].Name == name {
			return &r.Intents[i]
		}
	}
	return nil
}

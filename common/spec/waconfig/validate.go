package waconfig

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON string

// schema is compiled once at package init; the embedded document is part of
// the build, so a compile failure is a programming error.
var schema = jsonschema.MustCompileString("waconfig/schema.json", schemaJSON)

// Parse decodes a multi-account configuration YAML document and validates it.
// It is the canonical entry point for loading account configurations.
//
// The raw document is checked against the embedded JSON Schema before it is
// decoded into the typed struct, so unknown keys and type mismatches are
// reported instead of being silently dropped by the YAML decoder.
func Parse(data []byte) (*MultiAccountConfig, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("waconfig parse: %w", err)
	}
	if doc != nil {
		if err := schema.Validate(doc); err != nil {
			return nil, fmt.Errorf("waconfig schema: %w", err)
		}
	}

	var cfg MultiAccountConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("waconfig parse: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks a MultiAccountConfig for structural correctness.
// It round-trips the document through the embedded JSON Schema first, then
// applies the handful of checks the schema cannot express. The first error
// encountered is returned, or nil if the config is valid.
func Validate(cfg *MultiAccountConfig) error {
	if cfg == nil {
		return fmt.Errorf("config must not be nil")
	}

	if err := validateSchema(cfg); err != nil {
		return err
	}

	// ── Base policies ────────────────────────────────────────────────────────
	if err := validatePolicies(cfg.DmPolicy, cfg.GroupPolicy); err != nil {
		return err
	}

	// ── Accounts ─────────────────────────────────────────────────────────────
	for id, acct := range cfg.Accounts {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("accounts: key must not be blank")
		}
		if err := validatePolicies(acct.DmPolicy, acct.GroupPolicy); err != nil {
			return fmt.Errorf("accounts[%q]: %w", id, err)
		}
	}

	return nil
}

// validateSchema checks cfg against the embedded JSON Schema. The typed
// config is re-encoded as JSON so the schema validator sees canonical JSON
// values regardless of the original document encoding.
func validateSchema(cfg *MultiAccountConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("waconfig: encode for schema check: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("waconfig: decode for schema check: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("waconfig schema: %w", err)
	}
	return nil
}

// validatePolicies rejects policy names that would silently degrade to the
// defaults at evaluation time. Empty strings are fine (no value supplied).
func validatePolicies(dm, group string) error {
	if dm != "" {
		if _, ok := ParseDmPolicy(dm); !ok {
			return fmt.Errorf("dmPolicy: unknown policy %q", dm)
		}
	}
	if group != "" {
		if _, ok := ParseGroupPolicy(group); !ok {
			return fmt.Errorf("groupPolicy: unknown policy %q", group)
		}
	}
	return nil
}

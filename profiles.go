package prism

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ============================================================================
// AGGREGATION WEIGHT PROFILES
// ============================================================================
//
// A weight profile names per-member overrides of the aggregation weight and
// normalization factor used by meta-object distances. Profiles are plain
// configuration loaded from YAML:
//
//	name: keyword-heavy
//	members:
//	  ColorLayoutType: {weight: 1.0, norm: 0.003334}
//	  KeyWordsType:    {weight: 6.0, norm: 1.0}
//
// Members not listed keep weight 1 and norm 1. Profiles are immutable after
// loading and safe for concurrent readers.

// WeightEntry is one member's aggregation parameters.
type WeightEntry struct {
	Weight float32 `yaml:"weight"`
	Norm   float32 `yaml:"norm"`
}

// WeightProfile is a named set of per-member aggregation overrides.
type WeightProfile struct {
	Name    string                 `yaml:"name"`
	Members map[string]WeightEntry `yaml:"members"`
}

// Resolve returns the weight and norm of a member, defaulting both to 1 for
// members the profile does not list.
func (p *WeightProfile) Resolve(name string) (weight, norm float32) {
	if e, ok := p.Members[name]; ok {
		return e.Weight, e.Norm
	}
	return 1, 1
}

// Validate checks the profile against the member names it may legally
// override. Unknown names and negative parameters are rejected; a typo in a
// profile should fail loudly instead of silently weighting nothing.
func (p *WeightProfile) Validate(knownNames []string) error {
	known := make(map[string]bool, len(knownNames))
	for _, name := range knownNames {
		known[name] = true
	}
	for name, e := range p.Members {
		if !known[name] {
			return fmt.Errorf("weight profile %q: unknown member %q", p.Name, name)
		}
		if e.Weight < 0 {
			return fmt.Errorf("weight profile %q: member %q has negative weight %g", p.Name, name, e.Weight)
		}
		if e.Norm < 0 {
			return fmt.Errorf("weight profile %q: member %q has negative norm %g", p.Name, name, e.Norm)
		}
	}
	return nil
}

// LoadWeightProfile parses a YAML weight profile.
func LoadWeightProfile(r io.Reader) (*WeightProfile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read weight profile: %w", err)
	}
	var p WeightProfile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse weight profile: %w", err)
	}
	return &p, nil
}

// LoadWeightProfileFile loads a YAML weight profile from a file.
func LoadWeightProfileFile(path string) (*WeightProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read weight profile %s: %w", path, err)
	}
	var p WeightProfile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse weight profile %s: %w", path, err)
	}
	return &p, nil
}

// WriteYAML serializes the profile as YAML.
func (p *WeightProfile) WriteYAML(w io.Writer) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to serialize weight profile: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write weight profile: %w", err)
	}
	return nil
}

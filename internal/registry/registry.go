// Package registry loads the rule/audit registry: the externally supplied
// mapping from rule ids to category, weight, gate level, and profile
// overrides. The registry is loaded once per process and treated as immutable;
// the evaluators and the gate only ever read from it.
package registry

import (
	"embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"fullbleed/internal/model"
)

//go:embed default.yaml
var defaultFS embed.FS

// Level is a gate level: how hard a non-pass verdict pushes on the gate.
type Level string

const (
	LevelOff   Level = "off"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Entry describes one rule or audit id.
type Entry struct {
	ID               string                 `yaml:"id"`
	Category         string                 `yaml:"category"`
	Weight           float64                `yaml:"weight"`
	Class            string                 `yaml:"class"`
	VerificationMode model.VerificationMode `yaml:"verification_mode"`
	Severity         model.Severity         `yaml:"severity"`
	Stage            model.Stage            `yaml:"stage"`
	DefaultGateLevel Level                  `yaml:"default_gate_level"`
	Scored           bool                   `yaml:"scored"`
	Namespaces       []string               `yaml:"namespaces,omitempty"`
}

// Override raises or lowers the gate level of one id within a profile.
type Override struct {
	ID    string `yaml:"id"`
	Level Level  `yaml:"level"`
}

// Profile is a named layer of gate-level overrides on top of the defaults.
type Profile struct {
	Name      string     `yaml:"name"`
	Overrides []Override `yaml:"overrides,omitempty"`
}

// Category groups audits for PMR scoring.
type Category struct {
	ID     string  `yaml:"id"`
	Name   string  `yaml:"name"`
	Weight float64 `yaml:"weight"`
}

// Registry is the parsed, read-only registry document.
type Registry struct {
	Rules      []Entry    `yaml:"rules"`
	Audits     []Entry    `yaml:"audits"`
	Categories []Category `yaml:"categories"`
	Profiles   []Profile  `yaml:"profiles"`

	byID      map[string]*Entry
	byProfile map[string]*Profile
}

// UnknownIDError reports a rule/audit id with no registry entry. Referencing
// an unknown id is a configuration bug, not a document defect.
type UnknownIDError struct {
	ID      string
	Context string // "override", "gate", ...
}

func (e *UnknownIDError) Error() string {
	return fmt.Sprintf("registry: unknown id %q (%s)", e.ID, e.Context)
}

// LoadDefault parses the registry embedded in the binary.
func LoadDefault() (*Registry, error) {
	data, err := defaultFS.ReadFile("default.yaml")
	if err != nil {
		return nil, fmt.Errorf("embedded registry: %w", err)
	}
	return Parse(data)
}

// Load parses a registry document from a file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("registry %s: %w", path, err)
	}
	return r, nil
}

// Parse unmarshals and indexes a registry document.
func Parse(data []byte) (*Registry, error) {
	var r Registry
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	r.byID = make(map[string]*Entry, len(r.Rules)+len(r.Audits))
	for i := range r.Rules {
		r.byID[r.Rules[i].ID] = &r.Rules[i]
	}
	for i := range r.Audits {
		r.byID[r.Audits[i].ID] = &r.Audits[i]
	}
	r.byProfile = make(map[string]*Profile, len(r.Profiles))
	for i := range r.Profiles {
		r.byProfile[r.Profiles[i].Name] = &r.Profiles[i]
	}
	return &r, nil
}

// Entry looks up one id across rules and audits.
func (r *Registry) Entry(id string) (*Entry, bool) {
	e, ok := r.byID[id]
	return e, ok
}

// Profile returns the named profile, or nil when absent. The empty name is
// the default profile (no overrides).
func (r *Registry) Profile(name string) *Profile {
	if name == "" {
		return nil
	}
	return r.byProfile[name]
}

// ProfileNames lists the defined profiles, sorted.
func (r *Registry) ProfileNames() []string {
	names := make([]string, 0, len(r.byProfile))
	for n := range r.byProfile {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// GateLevel resolves the effective gate level for id under the given profile:
// profile override, else the entry default, else warn.
func (r *Registry) GateLevel(id, profile string) (Level, error) {
	entry, ok := r.Entry(id)
	if !ok {
		return "", &UnknownIDError{ID: id, Context: "gate"}
	}
	if p := r.Profile(profile); p != nil {
		for _, ov := range p.Overrides {
			if ov.ID == id {
				return ov.Level, nil
			}
		}
	}
	if entry.DefaultGateLevel != "" {
		return entry.DefaultGateLevel, nil
	}
	return LevelWarn, nil
}

// CategoryByID returns the scoring category definition.
func (r *Registry) CategoryByID(id string) (*Category, bool) {
	for i := range r.Categories {
		if r.Categories[i].ID == id {
			return &r.Categories[i], true
		}
	}
	return nil, false
}

// RulesInNamespace returns rule ids tagged with the namespace (e.g. wcag20aa),
// sorted for deterministic coverage accounting.
func (r *Registry) RulesInNamespace(ns string) []string {
	var ids []string
	for _, e := range r.Rules {
		for _, n := range e.Namespaces {
			if n == ns {
				ids = append(ids, e.ID)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids
}

// Validate checks internal consistency: profile overrides must reference
// known ids and carry a known level.
func (r *Registry) Validate() error {
	for _, p := range r.Profiles {
		for _, ov := range p.Overrides {
			if _, ok := r.byID[ov.ID]; !ok {
				return &UnknownIDError{ID: ov.ID, Context: "override in profile " + p.Name}
			}
			switch ov.Level {
			case LevelOff, LevelWarn, LevelError:
			default:
				return fmt.Errorf("registry: profile %s: invalid level %q for %s",
					p.Name, ov.Level, ov.ID)
			}
		}
	}
	return nil
}

// ParseLevel validates a gate mode string supplied by the caller.
func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToLower(s)) {
	case LevelOff:
		return LevelOff, nil
	case LevelWarn:
		return LevelWarn, nil
	case LevelError:
		return LevelError, nil
	}
	return "", fmt.Errorf("invalid mode %q (want off, warn, or error)", s)
}

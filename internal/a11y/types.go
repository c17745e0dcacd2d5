// Package a11y evaluates the accessibility rule set against extracted
// document facts, bridging in upstream pre-render diagnostics, claim-evidence
// attestations, and render-derived contrast analysis.
package a11y

import (
	"encoding/json"

	"fullbleed/internal/model"
)

// Diagnostic is one pre-render check result emitted by the document-authoring
// component's own accessibility contract.
type Diagnostic struct {
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Path     string `json:"path,omitempty"`
}

// Diagnostics is the upstream pre-render diagnostics document.
type Diagnostics struct {
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// ParseDiagnostics decodes an upstream diagnostics document.
func ParseDiagnostics(data []byte) (*Diagnostics, error) {
	var d Diagnostics
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// ContrastResult is the render-side contrast collaborator's verdict, wrapped
// verbatim into a post-render Finding.
type ContrastResult struct {
	Verdict    model.Verdict    `json:"verdict"`
	Confidence model.Confidence `json:"confidence"`
	MinRatio   float64          `json:"min_ratio,omitempty"`
	Detail     string           `json:"detail,omitempty"`
}

// Claim is one criterion's attestation from the claim-evidence document.
// A criterion outside static reach passes only when a human review was both
// declared and documented.
type Claim struct {
	ScopeDeclared bool
	Assessed      bool
	BasisRecorded bool
}

// ClaimEvidence holds attestations keyed by namespace and criterion.
// Missing or malformed fields read as false; parsing never fails.
type ClaimEvidence struct {
	claims map[string]Claim
}

// ParseClaims decodes a claim-evidence document. Anything that is not a
// well-formed boolean in the expected place is simply absent.
func ParseClaims(data []byte) *ClaimEvidence {
	ce := &ClaimEvidence{claims: map[string]Claim{}}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return ce
	}
	for ns, raw := range doc {
		criteria, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		for name, rawClaim := range criteria {
			fields, ok := rawClaim.(map[string]any)
			if !ok {
				continue
			}
			ce.claims[ns+"."+name] = Claim{
				ScopeDeclared: boolField(fields, "scope_declared"),
				Assessed:      boolField(fields, "assessed"),
				BasisRecorded: boolField(fields, "basis_recorded"),
			}
		}
	}
	return ce
}

// Get returns the attestation for one namespaced criterion; the zero Claim
// when absent.
func (c *ClaimEvidence) Get(namespace, criterion string) Claim {
	if c == nil || c.claims == nil {
		return Claim{}
	}
	return c.claims[namespace+"."+criterion]
}

func boolField(m map[string]any, key string) bool {
	v, ok := m[key].(bool)
	return ok && v
}

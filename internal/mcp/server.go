// Package mcp exposes the verification engine over the Model Context
// Protocol so agent tooling can verify documents without shelling out.
package mcp

import (
	"context"
	"fmt"

	"fullbleed/internal/logging"
	"fullbleed/internal/registry"
	"fullbleed/internal/report"
	"fullbleed/internal/verify"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP SDK server around one loaded registry and runner.
// The tools are stateless; every call is a complete verification run.
type Server struct {
	MCPServer *sdkmcp.Server

	reg    *registry.Registry
	runner *verify.Runner
}

// NewServer creates an MCP server exposing the verification tools.
func NewServer(reg *registry.Registry, collaborators ...any) *Server {
	s := &Server{
		reg:    reg,
		runner: verify.NewRunner(reg, collaborators...),
	}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: report.ToolName, Version: report.Version},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "verify_document",
		Description: "Run the accessibility rule set against a rendered HTML document (plus optional CSS and sidecar evidence) and return the accessibility report.",
	}, s.handleVerifyDocument)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "rank_document",
		Description: "Run the Paged-Media-Rank audits against a rendered HTML document and return the weighted category scores, confidence, and band.",
	}, s.handleRankDocument)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_profiles",
		Description: "List the gate profiles defined in the loaded registry, with their per-rule overrides.",
	}, s.handleListProfiles)
}

// --- Tool input/output types ---

type documentInput struct {
	HTML                string `json:"html" jsonschema:"rendered HTML document text"`
	CSS                 string `json:"css,omitempty" jsonschema:"print stylesheet text"`
	Diagnostics         string `json:"diagnostics_json,omitempty" jsonschema:"authoring-side pre-render diagnostics document"`
	Claims              string `json:"claims_json,omitempty" jsonschema:"claim-evidence attestation document"`
	ComponentValidation string `json:"component_validation_json,omitempty" jsonschema:"authoring component layout counters"`
	Parity              string `json:"parity_json,omitempty" jsonschema:"page-count parity report"`
	RunReport           string `json:"run_report_json,omitempty" jsonschema:"render-run report with the manual review queue"`
	Trace               string `json:"trace_json,omitempty" jsonschema:"post-render structure trace"`
	Profile             string `json:"profile,omitempty" jsonschema:"gate profile name (empty = registry defaults)"`
	Mode                string `json:"mode,omitempty" jsonschema:"gate mode: off, warn, error (default error)"`
}

type verifyDocumentOutput struct {
	Report *report.A11yReport `json:"report"`
}

type rankDocumentOutput struct {
	Report *report.PMRReport `json:"report"`
}

type listProfilesInput struct{}

type profileInfo struct {
	Name      string            `json:"name"`
	Overrides map[string]string `json:"overrides,omitempty"`
}

type listProfilesOutput struct {
	Profiles []profileInfo `json:"profiles"`
	Modes    []string      `json:"modes"`
}

func (in documentInput) inputs() verify.Inputs {
	mode := in.Mode
	if mode == "" {
		mode = "error"
	}
	return verify.Inputs{
		HTMLPath:            "mcp:document",
		HTML:                []byte(in.HTML),
		CSS:                 []byte(in.CSS),
		Diagnostics:         optionalBytes(in.Diagnostics),
		Claims:              optionalBytes(in.Claims),
		ComponentValidation: optionalBytes(in.ComponentValidation),
		Parity:              optionalBytes(in.Parity),
		RunReport:           optionalBytes(in.RunReport),
		Trace:               optionalBytes(in.Trace),
		Profile:             in.Profile,
		Mode:                mode,
	}
}

func optionalBytes(s string) []byte {
	if s == "" {
		return nil
	}
	return []byte(s)
}

// --- Tool handlers ---

func (s *Server) handleVerifyDocument(ctx context.Context, _ *sdkmcp.CallToolRequest, input documentInput) (*sdkmcp.CallToolResult, verifyDocumentOutput, error) {
	logger := logging.New("mcp")
	a11yRep, _, err := s.runner.Run(ctx, input.inputs())
	if err != nil {
		logger.Warn("verify_document failed", "error", err)
		return nil, verifyDocumentOutput{}, fmt.Errorf("verify_document: %w", err)
	}
	return nil, verifyDocumentOutput{Report: a11yRep}, nil
}

func (s *Server) handleRankDocument(ctx context.Context, _ *sdkmcp.CallToolRequest, input documentInput) (*sdkmcp.CallToolResult, rankDocumentOutput, error) {
	logger := logging.New("mcp")
	_, pmrRep, err := s.runner.Run(ctx, input.inputs())
	if err != nil {
		logger.Warn("rank_document failed", "error", err)
		return nil, rankDocumentOutput{}, fmt.Errorf("rank_document: %w", err)
	}
	return nil, rankDocumentOutput{Report: pmrRep}, nil
}

func (s *Server) handleListProfiles(_ context.Context, _ *sdkmcp.CallToolRequest, _ listProfilesInput) (*sdkmcp.CallToolResult, listProfilesOutput, error) {
	out := listProfilesOutput{
		Modes: []string{"off", "warn", "error"},
	}
	for _, name := range s.reg.ProfileNames() {
		info := profileInfo{Name: name}
		if p := s.reg.Profile(name); p != nil && len(p.Overrides) > 0 {
			info.Overrides = make(map[string]string, len(p.Overrides))
			for _, ov := range p.Overrides {
				info.Overrides[ov.ID] = string(ov.Level)
			}
		}
		out.Profiles = append(out.Profiles, info)
	}
	return nil, out, nil
}

// Run serves the MCP protocol over the given transport until ctx is canceled.
func (s *Server) Run(ctx context.Context, t sdkmcp.Transport) error {
	return s.MCPServer.Run(ctx, t)
}

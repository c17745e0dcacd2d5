package mcp_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	mcpserver "fullbleed/internal/mcp"
	"fullbleed/internal/registry"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	})))
	os.Exit(m.Run())
}

const cleanDoc = `<html lang="en"><head><title>Clean</title></head>
<body><main><h1>Clean</h1></main></body></html>`

const defectDoc = `<html><body><img src="x.png"><main><h1>Doc</h1></main></body></html>`

func newTestServer(t *testing.T) *mcpserver.Server {
	t.Helper()
	reg, err := registry.LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}
	return mcpserver.NewServer(reg)
}

func connectInMemory(t *testing.T, ctx context.Context, srv *mcpserver.Server) *sdkmcp.ClientSession {
	t.Helper()
	t1, t2 := sdkmcp.NewInMemoryTransports()
	serverSession, err := srv.MCPServer.Connect(ctx, t1, nil)
	if err != nil {
		t.Fatalf("server.Connect: %v", err)
	}
	t.Cleanup(func() { serverSession.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, t2, nil)
	if err != nil {
		t.Fatalf("client.Connect: %v", err)
	}
	return session
}

// callTool invokes one tool and decodes its JSON text content.
func callTool(t *testing.T, ctx context.Context, session *sdkmcp.ClientSession, name string, args map[string]any) map[string]any {
	t.Helper()
	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if res.IsError {
		for _, c := range res.Content {
			if tc, ok := c.(*sdkmcp.TextContent); ok {
				t.Fatalf("CallTool(%s) returned error: %s", name, tc.Text)
			}
		}
		t.Fatalf("CallTool(%s) returned error", name)
	}
	result := make(map[string]any)
	for _, c := range res.Content {
		if tc, ok := c.(*sdkmcp.TextContent); ok {
			if err := json.Unmarshal([]byte(tc.Text), &result); err != nil {
				t.Fatalf("unmarshal tool result: %v (text: %s)", err, tc.Text)
			}
			return result
		}
	}
	t.Fatalf("no text content in tool result")
	return nil
}

func TestServer_ToolDiscovery(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	session := connectInMemory(t, ctx, srv)
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}

	want := map[string]bool{
		"verify_document": false,
		"rank_document":   false,
		"list_profiles":   false,
	}
	for _, tool := range tools.Tools {
		if _, ok := want[tool.Name]; ok {
			want[tool.Name] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("tool %q not found in ListTools", name)
		}
	}
}

func TestServer_VerifyDocument(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	session := connectInMemory(t, ctx, srv)
	defer session.Close()

	result := callTool(t, ctx, session, "verify_document", map[string]any{
		"html": defectDoc,
	})

	report, ok := result["report"].(map[string]any)
	if !ok {
		t.Fatalf("no report in result: %v", result)
	}
	if got := report["schema"]; got != "fullbleed/a11y-report/v1" {
		t.Errorf("schema = %v", got)
	}
	if got := report["conformance_status"]; got != "non_conformant" {
		t.Errorf("conformance_status = %v, want non_conformant (missing lang, title, alt)", got)
	}
	gate, _ := report["gate"].(map[string]any)
	if gate == nil || gate["ok"] != false {
		t.Errorf("gate = %v, want failed in default error mode", gate)
	}
}

func TestServer_RankDocument(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	session := connectInMemory(t, ctx, srv)
	defer session.Close()

	result := callTool(t, ctx, session, "rank_document", map[string]any{
		"html":        cleanDoc,
		"mode":        "warn",
		"parity_json": `{"source_page_count": 2, "render_page_count": 2}`,
	})

	report, ok := result["report"].(map[string]any)
	if !ok {
		t.Fatalf("no report in result: %v", result)
	}
	rank, _ := report["rank"].(map[string]any)
	if rank == nil {
		t.Fatalf("no rank in report: %v", report)
	}
	if band, _ := rank["band"].(string); band == "" {
		t.Errorf("band = %v", rank["band"])
	}
	if score, ok := rank["score"].(float64); !ok || score < 0 || score > 100 {
		t.Errorf("score = %v", rank["score"])
	}
}

func TestServer_VerifyDocument_InvalidInputs(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	session := connectInMemory(t, ctx, srv)
	defer session.Close()

	cases := []struct {
		name string
		args map[string]any
	}{
		{"empty document", map[string]any{"html": ""}},
		{"bad mode", map[string]any{"html": cleanDoc, "mode": "strict"}},
		{"unknown profile", map[string]any{"html": cleanDoc, "profile": "nope"}},
		{"malformed diagnostics", map[string]any{"html": cleanDoc, "diagnostics_json": "{"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
				Name:      "verify_document",
				Arguments: tc.args,
			})
			if err != nil {
				t.Fatalf("CallTool: %v", err)
			}
			if !res.IsError {
				t.Fatal("expected IsError=true")
			}
		})
	}
}

func TestServer_ListProfiles(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	session := connectInMemory(t, ctx, srv)
	defer session.Close()

	result := callTool(t, ctx, session, "list_profiles", nil)

	profiles, ok := result["profiles"].([]any)
	if !ok || len(profiles) != 2 {
		t.Fatalf("profiles = %v, want ci-strict and draft", result["profiles"])
	}
	first, _ := profiles[0].(map[string]any)
	if first["name"] != "ci-strict" {
		t.Errorf("first profile = %v, want ci-strict (sorted)", first["name"])
	}
	if _, ok := first["overrides"].(map[string]any); !ok {
		t.Errorf("ci-strict overrides missing: %v", first)
	}
}

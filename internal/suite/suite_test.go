package suite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fullbleed/internal/registry"
	"fullbleed/internal/verify"
)

func writeFixture(t *testing.T, root, name string, files map[string]string) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for fname, content := range files {
		if err := os.WriteFile(filepath.Join(dir, fname), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

const goodDoc = `<html lang="en"><head><title>Good</title></head>
<body><main><h1>Good</h1></main></body></html>`

const badDoc = `<html><body><img src="x.png"></body></html>`

func testRunner(t *testing.T) *verify.Runner {
	t.Helper()
	reg, err := registry.LoadDefault()
	if err != nil {
		t.Fatal(err)
	}
	return verify.NewRunner(reg)
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "b-bad", map[string]string{"doc.html": badDoc})
	writeFixture(t, root, "a-good", map[string]string{
		"doc.html":    goodDoc,
		"doc.css":     "@page { size: A4 }",
		"expect.yaml": "gate_ok: true\n",
	})
	// not a fixture: no doc.html
	writeFixture(t, root, "c-empty", map[string]string{"readme.txt": "x"})
	// stray file at the root is ignored
	if err := os.WriteFile(filepath.Join(root, "notes.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	fixtures, err := Discover(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(fixtures) != 2 {
		t.Fatalf("discovered %d fixtures, want 2", len(fixtures))
	}
	if fixtures[0].Name != "a-good" || fixtures[1].Name != "b-bad" {
		t.Errorf("order = %s, %s", fixtures[0].Name, fixtures[1].Name)
	}
	if fixtures[0].Expect == nil || fixtures[0].Expect.GateOK == nil || !*fixtures[0].Expect.GateOK {
		t.Errorf("a-good expectation not loaded: %+v", fixtures[0].Expect)
	}
	if len(fixtures[0].Inputs.CSS) == 0 {
		t.Error("a-good css not loaded")
	}
	if fixtures[1].Expect != nil {
		t.Error("b-bad should have no expectation")
	}
}

func TestDiscover_MalformedExpectation(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "broken", map[string]string{
		"doc.html":    goodDoc,
		"expect.yaml": "gate_ok: [not a bool",
	})
	if _, err := Discover(root); err == nil {
		t.Fatal("malformed expect.yaml should fail discovery")
	}
}

func TestRun_ChecksExpectations(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "clean", map[string]string{
		"doc.html": goodDoc,
		"expect.yaml": `conformance_status: manual_review_required
gate_ok: true
fail_count: 0
`,
	})
	writeFixture(t, root, "defects", map[string]string{
		"doc.html": badDoc,
		"expect.yaml": `conformance_status: non_conformant
gate_ok: false
`,
	})
	writeFixture(t, root, "wrong-expect", map[string]string{
		"doc.html":    badDoc,
		"expect.yaml": "gate_ok: true\n",
	})

	fixtures, err := Discover(root)
	if err != nil {
		t.Fatal(err)
	}
	results := Run(context.Background(), testRunner(t), fixtures, Options{
		Mode:     "error",
		Parallel: 4,
		Now:      time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	})

	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}
	byName := map[string]*Result{}
	for i := range results {
		if results[i].Name != fixtures[i].Name {
			t.Errorf("result %d = %s, want index-aligned with %s", i, results[i].Name, fixtures[i].Name)
		}
		byName[results[i].Name] = &results[i]
	}

	if r := byName["clean"]; !r.OK() {
		t.Errorf("clean: err=%v mismatches=%v", r.Err, r.Mismatches)
	}
	if r := byName["defects"]; !r.OK() {
		t.Errorf("defects: err=%v mismatches=%v", r.Err, r.Mismatches)
	}
	if r := byName["wrong-expect"]; r.OK() || len(r.Mismatches) == 0 {
		t.Errorf("wrong-expect should mismatch, got %+v", r)
	}

	s := Summarize(results)
	if s.Total != 3 || s.Passed != 2 || s.Mismatched != 1 || s.Errored != 0 {
		t.Errorf("summary = %+v", s)
	}
}

func TestRun_CapturesErrorsPerFixture(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "empty-doc", map[string]string{"doc.html": ""})
	writeFixture(t, root, "fine", map[string]string{"doc.html": goodDoc})

	fixtures, err := Discover(root)
	if err != nil {
		t.Fatal(err)
	}
	results := Run(context.Background(), testRunner(t), fixtures, Options{Mode: "warn", Parallel: 2})

	if results[0].Err == nil {
		t.Error("empty-doc should error")
	}
	if results[1].Err != nil {
		t.Errorf("fine errored: %v", results[1].Err)
	}
	s := Summarize(results)
	if s.Errored != 1 || s.Passed != 1 {
		t.Errorf("summary = %+v", s)
	}
}

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"fullbleed/internal/display"
)

func TestDisplayMode(t *testing.T) {
	cases := []struct {
		format  string
		want    display.Mode
		wantErr bool
	}{
		{"", display.ASCII, false},
		{"table", display.ASCII, false},
		{"markdown", display.Markdown, false},
		{"md", display.Markdown, false},
		{"csv", display.ASCII, true},
	}
	for _, tc := range cases {
		got, err := displayMode(tc.format)
		if (err != nil) != tc.wantErr {
			t.Errorf("displayMode(%q) err = %v", tc.format, err)
			continue
		}
		if !tc.wantErr && got != tc.want {
			t.Errorf("displayMode(%q) = %v, want %v", tc.format, got, tc.want)
		}
	}
}

func TestReadInputs(t *testing.T) {
	dir := t.TempDir()
	htmlPath := filepath.Join(dir, "doc.html")
	if err := os.WriteFile(htmlPath, []byte("<html></html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	parityPath := filepath.Join(dir, "parity.json")
	if err := os.WriteFile(parityPath, []byte(`{"source_page_count":1,"render_page_count":1}`), 0o644); err != nil {
		t.Fatal(err)
	}

	df := &documentFlags{parity: parityPath, profile: "draft", mode: "warn"}
	in, err := readInputs(htmlPath, df)
	if err != nil {
		t.Fatal(err)
	}
	if string(in.HTML) != "<html></html>" || in.Profile != "draft" || in.Mode != "warn" {
		t.Errorf("inputs = %+v", in)
	}
	if len(in.Parity) == 0 {
		t.Error("parity sidecar not read")
	}
	if in.CSS != nil || in.Diagnostics != nil {
		t.Error("unset sidecars should stay nil")
	}

	// naming a missing sidecar is an error, not silence
	df.trace = filepath.Join(dir, "missing.json")
	if _, err := readInputs(htmlPath, df); err == nil {
		t.Error("missing sidecar file should fail")
	}

	if _, err := readInputs(filepath.Join(dir, "nope.html"), &documentFlags{}); err == nil {
		t.Error("missing document should fail")
	}
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := writeJSON(path, map[string]int{"a": 1}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]int
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("wrote invalid JSON: %v", err)
	}
	if got["a"] != 1 {
		t.Errorf("got %v", got)
	}
	if data[len(data)-1] != '\n' {
		t.Error("output should end with a newline")
	}
}

func TestJoinNS(t *testing.T) {
	if got := joinNS(nil); got != "" {
		t.Errorf("got %q", got)
	}
	if got := joinNS([]string{"wcag20aa", "section508"}); got != "wcag20aa,section508" {
		t.Errorf("got %q", got)
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fullbleed/internal/display"
	"fullbleed/internal/registry"
	"fullbleed/internal/verify"
)

// loadRegistry returns the registry named by --registry, or the embedded
// default. Either way the document is validated before use.
func loadRegistry() (*registry.Registry, error) {
	var reg *registry.Registry
	var err error
	if rootFlags.registry != "" {
		reg, err = registry.Load(rootFlags.registry)
	} else {
		reg, err = registry.LoadDefault()
	}
	if err != nil {
		return nil, err
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return reg, nil
}

// documentFlags is the input-file flag set shared by verify and rank.
type documentFlags struct {
	css                 string
	diagnostics         string
	claims              string
	componentValidation string
	parity              string
	runReport           string
	trace               string
	profile             string
	mode                string
	output              string
	format              string
}

// addDocumentFlags registers the shared input flags on a document command.
func addDocumentFlags(cmd *cobra.Command, df *documentFlags) {
	f := cmd.Flags()
	f.StringVar(&df.css, "css", "", "Print stylesheet path")
	f.StringVar(&df.diagnostics, "diagnostics", "", "Authoring-side pre-render diagnostics JSON path")
	f.StringVar(&df.claims, "claims", "", "Claim-evidence attestation JSON path")
	f.StringVar(&df.componentValidation, "component-validation", "", "Authoring component layout counters JSON path")
	f.StringVar(&df.parity, "parity", "", "Page-count parity report JSON path")
	f.StringVar(&df.runReport, "run-report", "", "Render-run report JSON path (manual review queue)")
	f.StringVar(&df.trace, "trace", "", "Post-render structure trace JSON path")
	f.StringVar(&df.profile, "profile", "", "Gate profile name (default: registry defaults)")
	f.StringVar(&df.mode, "mode", "error", "Gate mode: off, warn, error")
	f.StringVarP(&df.output, "output", "o", "", "Write the JSON report to this path (- for stdout)")
	f.StringVar(&df.format, "format", "table", "Console output: table, markdown, or json")
}

// readInputs assembles verify.Inputs from the document path and flags.
// Sidecar flags are optional; naming a missing file is an error, not silence.
func readInputs(htmlPath string, df *documentFlags) (verify.Inputs, error) {
	in := verify.Inputs{
		HTMLPath: htmlPath,
		Profile:  df.profile,
		Mode:     df.mode,
	}

	html, err := os.ReadFile(htmlPath)
	if err != nil {
		return in, fmt.Errorf("read document: %w", err)
	}
	in.HTML = html

	if df.css != "" {
		css, err := os.ReadFile(df.css)
		if err != nil {
			return in, fmt.Errorf("read stylesheet: %w", err)
		}
		in.CSSPath = df.css
		in.CSS = css
	}

	sidecars := []struct {
		path string
		dst  *[]byte
	}{
		{df.diagnostics, &in.Diagnostics},
		{df.claims, &in.Claims},
		{df.componentValidation, &in.ComponentValidation},
		{df.parity, &in.Parity},
		{df.runReport, &in.RunReport},
		{df.trace, &in.Trace},
	}
	for _, s := range sidecars {
		if s.path == "" {
			continue
		}
		data, err := os.ReadFile(s.path)
		if err != nil {
			return in, fmt.Errorf("read sidecar: %w", err)
		}
		*s.dst = data
	}
	return in, nil
}

// writeJSON writes a report document to path, or stdout when path is "-".
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// displayMode maps the --format flag to a table rendering mode. JSON output
// is handled before tables are rendered.
func displayMode(format string) (display.Mode, error) {
	switch format {
	case "", "table":
		return display.ASCII, nil
	case "markdown", "md":
		return display.Markdown, nil
	}
	return display.ASCII, fmt.Errorf("unknown format %q (want table, markdown, or json)", format)
}

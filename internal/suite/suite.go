// Package suite runs a directory of document fixtures through the verifier
// and checks each result against the fixture's declared expectations. It is
// the regression harness for rule and audit behavior.
package suite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"fullbleed/internal/logging"
	"fullbleed/internal/report"
	"fullbleed/internal/verify"
)

// Fixture file names inside one fixture directory. Only the HTML is required.
const (
	fileHTML        = "doc.html"
	fileCSS         = "doc.css"
	fileDiagnostics = "diagnostics.json"
	fileClaims      = "claims.json"
	fileComponent   = "component_validation.json"
	fileParity      = "parity.json"
	fileRunReport   = "run_report.json"
	fileTrace       = "trace.json"
	fileExpect      = "expect.yaml"
)

// Expectation declares what a fixture's reports must look like. Nil/empty
// fields are not checked.
type Expectation struct {
	ConformanceStatus string   `yaml:"conformance_status,omitempty"`
	GateOK            *bool    `yaml:"gate_ok,omitempty"`
	FailCount         *int     `yaml:"fail_count,omitempty"`
	Band              string   `yaml:"band,omitempty"`
	MinScore          *float64 `yaml:"min_score,omitempty"`
}

// Fixture is one discovered document fixture.
type Fixture struct {
	Name   string
	Dir    string
	Inputs verify.Inputs
	Expect *Expectation
}

// Discover walks root's immediate subdirectories and loads every fixture
// containing a doc.html, sorted by name.
func Discover(root string) ([]Fixture, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read suite dir: %w", err)
	}

	var fixtures []Fixture
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if _, err := os.Stat(filepath.Join(dir, fileHTML)); err != nil {
			continue
		}
		fx, err := loadFixture(e.Name(), dir)
		if err != nil {
			return nil, fmt.Errorf("fixture %s: %w", e.Name(), err)
		}
		fixtures = append(fixtures, fx)
	}
	sort.Slice(fixtures, func(i, j int) bool { return fixtures[i].Name < fixtures[j].Name })
	return fixtures, nil
}

func loadFixture(name, dir string) (Fixture, error) {
	fx := Fixture{Name: name, Dir: dir}

	html, err := os.ReadFile(filepath.Join(dir, fileHTML))
	if err != nil {
		return fx, err
	}
	fx.Inputs = verify.Inputs{
		HTMLPath: filepath.Join(dir, fileHTML),
		HTML:     html,
	}
	if css, err := os.ReadFile(filepath.Join(dir, fileCSS)); err == nil {
		fx.Inputs.CSSPath = filepath.Join(dir, fileCSS)
		fx.Inputs.CSS = css
	}
	fx.Inputs.Diagnostics = optional(dir, fileDiagnostics)
	fx.Inputs.Claims = optional(dir, fileClaims)
	fx.Inputs.ComponentValidation = optional(dir, fileComponent)
	fx.Inputs.Parity = optional(dir, fileParity)
	fx.Inputs.RunReport = optional(dir, fileRunReport)
	fx.Inputs.Trace = optional(dir, fileTrace)

	if data := optional(dir, fileExpect); data != nil {
		var exp Expectation
		if err := yaml.Unmarshal(data, &exp); err != nil {
			return fx, fmt.Errorf("parse %s: %w", fileExpect, err)
		}
		fx.Expect = &exp
	}
	return fx, nil
}

func optional(dir, name string) []byte {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return nil
	}
	return data
}

// Result is one fixture's outcome.
type Result struct {
	Name       string
	A11y       *report.A11yReport
	PMR        *report.PMRReport
	Err        error
	Mismatches []string
}

// OK reports whether the fixture ran and met every declared expectation.
func (r *Result) OK() bool {
	return r.Err == nil && len(r.Mismatches) == 0
}

// Options configures one suite run.
type Options struct {
	Profile  string
	Mode     string
	Parallel int
	Now      time.Time
}

// Run executes every fixture through the runner with a bounded worker pool.
// Worker errors are captured per fixture, never propagated; the result slice
// is index-aligned with the fixture slice.
func Run(ctx context.Context, runner *verify.Runner, fixtures []Fixture, opts Options) []Result {
	logger := logging.New("suite")

	parallel := opts.Parallel
	if parallel < 1 {
		parallel = 1
	}
	mode := opts.Mode
	if mode == "" {
		mode = "error"
	}

	logger.Info("suite start", "fixtures", len(fixtures), "workers", parallel, "profile", opts.Profile)

	results := make([]Result, len(fixtures))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, fx := range fixtures {
		i, fx := i, fx
		g.Go(func() error {
			results[i] = runOne(gctx, runner, fx, opts, mode)
			return nil
		})
	}
	_ = g.Wait() // errors captured per result

	for i := range results {
		if results[i].Err != nil {
			logger.Error("fixture failed", "fixture", results[i].Name, "error", results[i].Err)
		} else if len(results[i].Mismatches) > 0 {
			logger.Warn("fixture mismatched", "fixture", results[i].Name, "mismatches", len(results[i].Mismatches))
		}
	}
	return results
}

func runOne(ctx context.Context, runner *verify.Runner, fx Fixture, opts Options, mode string) Result {
	res := Result{Name: fx.Name}

	in := fx.Inputs
	in.Profile = opts.Profile
	in.Mode = mode
	in.Now = opts.Now

	res.A11y, res.PMR, res.Err = runner.Run(ctx, in)
	if res.Err != nil {
		return res
	}
	if fx.Expect != nil {
		res.Mismatches = check(fx.Expect, res.A11y, res.PMR)
	}
	return res
}

// check compares one result against its declared expectations.
func check(exp *Expectation, a11y *report.A11yReport, pmr *report.PMRReport) []string {
	var mismatches []string
	if exp.ConformanceStatus != "" && a11y.ConformanceStatus != exp.ConformanceStatus {
		mismatches = append(mismatches,
			fmt.Sprintf("conformance_status = %s, want %s", a11y.ConformanceStatus, exp.ConformanceStatus))
	}
	if exp.GateOK != nil && a11y.Gate.OK != *exp.GateOK {
		mismatches = append(mismatches,
			fmt.Sprintf("gate ok = %t, want %t", a11y.Gate.OK, *exp.GateOK))
	}
	if exp.FailCount != nil && a11y.Summary.FailCount != *exp.FailCount {
		mismatches = append(mismatches,
			fmt.Sprintf("fail_count = %d, want %d", a11y.Summary.FailCount, *exp.FailCount))
	}
	if exp.Band != "" && pmr.Rank.Band != exp.Band {
		mismatches = append(mismatches,
			fmt.Sprintf("band = %s, want %s", pmr.Rank.Band, exp.Band))
	}
	if exp.MinScore != nil && pmr.Rank.Score < *exp.MinScore {
		mismatches = append(mismatches,
			fmt.Sprintf("score = %.1f, want >= %.1f", pmr.Rank.Score, *exp.MinScore))
	}
	return mismatches
}

// Summary aggregates a suite run.
type Summary struct {
	Total      int
	Passed     int
	Mismatched int
	Errored    int
}

// Summarize tallies the results.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for i := range results {
		switch {
		case results[i].Err != nil:
			s.Errored++
		case len(results[i].Mismatches) > 0:
			s.Mismatched++
		default:
			s.Passed++
		}
	}
	return s
}

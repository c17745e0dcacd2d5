package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"fullbleed/internal/display"
	"fullbleed/internal/suite"
	"fullbleed/internal/verify"
)

var suiteFlags struct {
	profile  string
	mode     string
	parallel int
	format   string
}

var suiteCmd = &cobra.Command{
	Use:   "suite <fixtures-dir>",
	Short: "Run a directory of document fixtures and check their expectations",
	Long: `Suite discovers fixture directories (each containing a doc.html plus
optional sidecars and an expect.yaml), verifies every fixture through a
bounded worker pool, and reports mismatches against the declared
expectations.

Usage:
  fullbleed suite testdata/fixtures
  fullbleed suite testdata/fixtures --profile ci-strict --parallel 8

The command exits non-zero when any fixture errors or mismatches.`,
	Args: cobra.ExactArgs(1),
	RunE: runSuite,
}

func init() {
	f := suiteCmd.Flags()
	f.StringVar(&suiteFlags.profile, "profile", "", "Gate profile name (default: registry defaults)")
	f.StringVar(&suiteFlags.mode, "mode", "error", "Gate mode: off, warn, error")
	f.IntVar(&suiteFlags.parallel, "parallel", runtime.NumCPU(), "Number of parallel workers")
	f.StringVar(&suiteFlags.format, "format", "table", "Console output: table or markdown")
}

func runSuite(cmd *cobra.Command, args []string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	fixtures, err := suite.Discover(args[0])
	if err != nil {
		return err
	}
	if len(fixtures) == 0 {
		return fmt.Errorf("no fixtures under %s (each fixture dir needs a doc.html)", args[0])
	}

	mode, err := displayMode(suiteFlags.format)
	if err != nil {
		return err
	}

	results := suite.Run(cmd.Context(), verify.NewRunner(reg), fixtures, suite.Options{
		Profile:  suiteFlags.profile,
		Mode:     suiteFlags.mode,
		Parallel: suiteFlags.parallel,
	})

	fmt.Println(display.SuiteTable(results, mode))

	s := suite.Summarize(results)
	if s.Errored > 0 || s.Mismatched > 0 {
		return fmt.Errorf("suite failed: %d errored, %d mismatched of %d", s.Errored, s.Mismatched, s.Total)
	}
	return nil
}

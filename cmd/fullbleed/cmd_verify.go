package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fullbleed/internal/display"
	"fullbleed/internal/verify"
)

var verifyFlags documentFlags

var verifyCmd = &cobra.Command{
	Use:   "verify <document.html>",
	Short: "Run the accessibility rule set against a rendered document",
	Long: `Verify evaluates every accessibility rule against a rendered HTML document,
folds in optional sidecar evidence (pre-render diagnostics, claim-evidence
attestations, post-render traces), and gates the result for CI.

Usage:
  fullbleed verify report.html --css print.css
  fullbleed verify report.html --profile ci-strict --diagnostics contract.json
  fullbleed verify report.html --format json -o -

The command exits non-zero when the gate fails.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	addDocumentFlags(verifyCmd, &verifyFlags)
}

func runVerify(cmd *cobra.Command, args []string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	in, err := readInputs(args[0], &verifyFlags)
	if err != nil {
		return err
	}

	a11yRep, pmrRep, err := verify.NewRunner(reg).Run(cmd.Context(), in)
	if err != nil {
		return err
	}

	if verifyFlags.output != "" {
		if err := writeJSON(verifyFlags.output, a11yRep); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	if verifyFlags.format == "json" {
		if verifyFlags.output == "" {
			if err := writeJSON("-", a11yRep); err != nil {
				return err
			}
		}
	} else {
		mode, err := displayMode(verifyFlags.format)
		if err != nil {
			return err
		}
		fmt.Println(display.Headline(a11yRep, pmrRep))
		fmt.Println(display.FindingsTable(a11yRep.Findings, mode))
		fmt.Printf("Coverage: %.0f%% of rules evaluated (wcag20aa %.0f%%, section508 %.0f%%)\n",
			a11yRep.Coverage.Fraction*100, a11yRep.Coverage.WCAG20AA*100, a11yRep.Coverage.Section508*100)
	}

	if !a11yRep.Gate.OK {
		return fmt.Errorf("gate failed: %d error(s) across %v",
			a11yRep.Gate.ErrorCount, a11yRep.Gate.FailedIDs)
	}
	return nil
}

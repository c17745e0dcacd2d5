package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fullbleed/internal/display"
	"fullbleed/internal/verify"
)

var rankFlags documentFlags

var rankCmd = &cobra.Command{
	Use:   "rank <document.html>",
	Short: "Compute the Paged-Media-Rank for a rendered document",
	Long: `Rank runs the paged-media audits (structure, navigation, fidelity,
packaging) and aggregates them into weighted category scores, an overall
0-100 rank with a confidence estimate, and a band classification.

Usage:
  fullbleed rank report.html --css print.css --trace trace.json
  fullbleed rank report.html --parity parity.json --run-report run.json

The command exits non-zero when the audit gate fails.`,
	Args: cobra.ExactArgs(1),
	RunE: runRank,
}

func init() {
	addDocumentFlags(rankCmd, &rankFlags)
}

func runRank(cmd *cobra.Command, args []string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	in, err := readInputs(args[0], &rankFlags)
	if err != nil {
		return err
	}

	_, pmrRep, err := verify.NewRunner(reg).Run(cmd.Context(), in)
	if err != nil {
		return err
	}

	if rankFlags.output != "" {
		if err := writeJSON(rankFlags.output, pmrRep); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	if rankFlags.format == "json" {
		if rankFlags.output == "" {
			if err := writeJSON("-", pmrRep); err != nil {
				return err
			}
		}
	} else {
		mode, err := displayMode(rankFlags.format)
		if err != nil {
			return err
		}
		fmt.Printf("%s: PMR %.1f (%s), confidence %.1f\n", args[0],
			pmrRep.Rank.Score, display.Band(pmrRep.Rank.Band), pmrRep.Rank.Confidence)
		fmt.Println(display.RankTable(pmrRep, mode))
		fmt.Println(display.AuditsTable(pmrRep.Audits, mode))
		if pmrRep.ManualDebt.Count > 0 {
			fmt.Printf("Manual review debt: %d unresolved item(s)\n", pmrRep.ManualDebt.Count)
		}
	}

	if !pmrRep.Gate.OK {
		return fmt.Errorf("gate failed: %d error(s) across %v",
			pmrRep.Gate.ErrorCount, pmrRep.Gate.FailedIDs)
	}
	return nil
}

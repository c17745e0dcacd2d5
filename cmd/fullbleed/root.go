package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fullbleed/internal/logging"
	"fullbleed/internal/report"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	logLevel  string
	logFormat string
	registry  string
}

var rootCmd = &cobra.Command{
	Use:   "fullbleed",
	Short: "Accessibility and paged-media compliance verification for rendered documents",
	Long: "Fullbleed statically verifies rendered HTML/CSS documents destined for\n" +
		"paged output: accessibility findings gated for CI, plus a weighted\n" +
		"Paged-Media-Rank over structure, navigation, fidelity, and packaging.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		level, err := logging.ParseLevel(rootFlags.logLevel)
		if err != nil {
			return err
		}
		logging.Init(level, rootFlags.logFormat)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	pf.StringVar(&rootFlags.logFormat, "log-format", "text", "Log format: text or json")
	pf.StringVar(&rootFlags.registry, "registry", "", "Registry YAML path (default: embedded registry)")

	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(rankCmd)
	rootCmd.AddCommand(suiteCmd)
	rootCmd.AddCommand(registryCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.Version = version
	report.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

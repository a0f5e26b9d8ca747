package main

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "clinsift",
	Short: "Eligibility criteria extraction and grounding for clinical trial protocols",
	Long: `clinsift reads a clinical-trial protocol document, extracts its
eligibility criteria as atomic statements, and grounds each criterion in
standardized medical terminology.

The pipeline includes:
  - Page and paragraph filtering down to the eligibility sections
  - Agent-driven extraction of atomic inclusion/exclusion criteria
  - Deduplication across paragraphs
  - Terminology grounding with ranked concept candidates`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.clinsift/config.yaml)",
	)

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(groundCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clinsift/clinsift/internal/criteria"
	"github.com/clinsift/clinsift/internal/document"
	"github.com/clinsift/clinsift/internal/pipeline"
	"github.com/clinsift/clinsift/internal/store"
)

var (
	groundModel  string
	groundOutDir string
	groundFormat string
)

var groundCmd = &cobra.Command{
	Use:   "ground <report>",
	Short: "Re-ground the criteria from a saved report",
	Long: `Ground runs terminology grounding over the criteria of a previously
saved report, without repeating page filtering or extraction. Useful after a
terminology service outage or when switching models for the grounding step.`,
	Args: cobra.ExactArgs(1),
	RunE: runGround,
}

func init() {
	groundCmd.Flags().StringVar(&groundModel, "model", "", "override the configured LLM model")
	groundCmd.Flags().StringVar(&groundOutDir, "out", "", "override the configured output directory")
	groundCmd.Flags().StringVar(&groundFormat, "format", "", "report format: yaml or json")
}

func runGround(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cfgFile, groundModel)
	if err != nil {
		return err
	}
	defer rt.Close()
	ctx := rt.withServices(cmd.Context())

	prev, err := store.Load(args[0])
	if err != nil {
		return fmt.Errorf("load report: %w", err)
	}
	if len(prev.Criteria) == 0 {
		return fmt.Errorf("report %s has no criteria to ground", args[0])
	}

	crits := make([]criteria.Criterion, 0, len(prev.Criteria))
	for _, gc := range prev.Criteria {
		crits = append(crits, gc.Criterion)
	}

	doc := &document.Document{ID: prev.DocumentID, Title: prev.Title}
	rep, err := pipeline.Reground(ctx, doc, crits, prev.PageIndices, newGroundStage(rt), rt.logger)
	if err != nil {
		return err
	}

	path, err := saveReport(rt.cfg, rep, groundOutDir, groundFormat)
	if err != nil {
		return err
	}

	fmt.Printf("wrote %s\n", path)
	fmt.Printf("  criteria: %d\n", rep.Summary.CriteriaAfterDedup)
	if n := rep.Summary.CriteriaDegraded + rep.Summary.CriteriaFailed + rep.Summary.CriteriaSkipped; n > 0 {
		fmt.Printf("  criteria not fully grounded: %d\n", n)
	}
	if rep.Summary.CriteriaUngrounded > 0 {
		fmt.Printf("  criteria with no terminology match: %d\n", rep.Summary.CriteriaUngrounded)
	}
	return nil
}

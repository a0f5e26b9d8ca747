package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/clinsift/clinsift/internal/agent"
	"github.com/clinsift/clinsift/internal/agents/extractor"
	extractortools "github.com/clinsift/clinsift/internal/agents/extractor/tools"
	"github.com/clinsift/clinsift/internal/agents/grounder"
	groundertools "github.com/clinsift/clinsift/internal/agents/grounder/tools"
	"github.com/clinsift/clinsift/internal/agents/pagefilter"
	"github.com/clinsift/clinsift/internal/agents/parafilter"
	"github.com/clinsift/clinsift/internal/config"
	"github.com/clinsift/clinsift/internal/criteria"
	"github.com/clinsift/clinsift/internal/document"
	"github.com/clinsift/clinsift/internal/pipeline"
	"github.com/clinsift/clinsift/internal/store"
)

var (
	extractModel  string
	extractOutDir string
	extractFormat string
)

var extractCmd = &cobra.Command{
	Use:   "extract <document>",
	Short: "Extract and ground eligibility criteria from a protocol document",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractModel, "model", "", "override the configured LLM model")
	extractCmd.Flags().StringVar(&extractOutDir, "out", "", "override the configured output directory")
	extractCmd.Flags().StringVar(&extractFormat, "format", "", "report format: yaml or json")
}

func runExtract(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cfgFile, extractModel)
	if err != nil {
		return err
	}
	defer rt.Close()
	ctx := rt.withServices(cmd.Context())

	doc, err := document.Load(args[0])
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	cfg := rt.cfg
	extractStage := extractor.NewStage(rt.client, rt.gen,
		func(pageIndex, paragraphIndex int, paragraphText string) agent.Tools {
			return extractortools.New(rt.svc, rt.clarify, pageIndex, paragraphIndex, paragraphText)
		},
		extractor.Options{
			Model:             rt.model,
			MaxSteps:          cfg.Agents.Extractor.MaxSteps,
			ToolTimeout:       cfg.Agents.Extractor.ToolTimeout,
			InvocationTimeout: cfg.Agents.Extractor.InvocationTimeout,
		}, rt.logger, rt.traceStore)

	registry := pipeline.NewRegistry()
	for _, stage := range []pipeline.Stage{
		&pipeline.FilterPagesStage{Filter: pagefilter.New(rt.gen, pagefilter.Options{
			Model:            rt.model,
			MaxPagesPerBatch: cfg.Pipeline.MaxPagesPerBatch,
		}, rt.logger)},
		&pipeline.FilterParagraphsStage{Filter: parafilter.New(rt.gen, parafilter.Options{
			Model:            rt.model,
			MaxParasPerBatch: cfg.Pipeline.MaxParasPerBatch,
		}, rt.logger)},
		&pipeline.ExtractStage{
			Stage:        extractStage,
			Concurrency:  cfg.Pipeline.Concurrency,
			UnitAttempts: uint(cfg.Pipeline.UnitAttempts),
			Logger:       rt.logger,
		},
		&pipeline.DedupStage{SimilarityThreshold: cfg.Pipeline.SimilarityThreshold},
		newGroundStage(rt),
	} {
		if err := registry.Register(stage); err != nil {
			return err
		}
	}

	runner, err := pipeline.NewRunner(registry, rt.logger)
	if err != nil {
		return err
	}

	rep, err := runner.Run(ctx, doc)
	if err != nil {
		return err
	}

	path, err := saveReport(rt.cfg, rep, extractOutDir, extractFormat)
	if err != nil {
		return err
	}

	fmt.Printf("wrote %s\n", path)
	fmt.Printf("  criteria: %d (%d before dedup)\n", rep.Summary.CriteriaAfterDedup, rep.Summary.CriteriaExtracted)
	fmt.Printf("  pages: %d, paragraphs: %d\n", rep.Summary.PagesSelected, rep.Summary.ParagraphsSelected)
	if n := rep.Summary.ParagraphsDegraded + rep.Summary.ParagraphsFailed + rep.Summary.ParagraphsSkipped; n > 0 {
		fmt.Printf("  paragraphs not fully processed: %d\n", n)
	}
	if n := rep.Summary.CriteriaDegraded + rep.Summary.CriteriaFailed + rep.Summary.CriteriaSkipped; n > 0 {
		fmt.Printf("  criteria not fully grounded: %d\n", n)
	}
	return nil
}

// newGroundStage builds the grounding stage shared by extract and ground.
func newGroundStage(rt *runtime) *pipeline.GroundStage {
	cfg := rt.cfg
	stage := grounder.NewStage(rt.client, rt.gen,
		func(c criteria.Criterion) agent.Tools {
			return groundertools.New(rt.svc, rt.term, c)
		},
		grounder.Options{
			Model:             rt.model,
			MaxSteps:          cfg.Agents.Grounder.MaxSteps,
			ToolTimeout:       cfg.Agents.Grounder.ToolTimeout,
			InvocationTimeout: cfg.Agents.Grounder.InvocationTimeout,
		}, rt.logger, rt.traceStore)

	return &pipeline.GroundStage{
		Stage:        stage,
		Concurrency:  cfg.Pipeline.Concurrency,
		UnitAttempts: uint(cfg.Pipeline.UnitAttempts),
		Logger:       rt.logger,
	}
}

// saveReport resolves output settings (flag over config) and writes the
// report.
func saveReport(cfg *config.Config, rep *pipeline.Report, outDir, formatStr string) (string, error) {
	if outDir == "" {
		outDir = cfg.Output.Dir
	}
	if formatStr == "" {
		formatStr = cfg.Output.Format
	}
	format, err := store.ParseFormat(formatStr)
	if err != nil {
		return "", err
	}

	fs, err := store.NewFileStore(outDir, format)
	if err != nil {
		return "", err
	}
	return fs.Save(rep)
}

// newLogger builds the process logger from config.
func newLogger(cfg config.LoggingCfg) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

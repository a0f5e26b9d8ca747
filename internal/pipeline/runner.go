package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/clinsift/clinsift/internal/document"
)

// Runner executes the registered stages against one document.
type Runner struct {
	registry *Registry
	logger   *slog.Logger
}

// NewRunner creates a runner over a validated registry.
func NewRunner(registry *Registry, logger *slog.Logger) (*Runner, error) {
	if err := registry.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{registry: registry, logger: logger}, nil
}

// Run executes the pipeline and assembles the final report. A stage error
// aborts the run; degraded units inside a stage do not.
func (r *Runner) Run(ctx context.Context, doc *document.Document) (*Report, error) {
	stages, err := r.registry.GetOrdered()
	if err != nil {
		return nil, err
	}

	st := &State{
		Doc:   doc,
		RunID: uuid.New().String(),
	}

	r.logger.Info("pipeline run starting",
		"run_id", st.RunID,
		"document_id", doc.ID,
		"pages", doc.PageCount(),
		"stages", len(stages))

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		r.logger.Info("stage starting", "run_id", st.RunID, "stage", stage.Name())
		if err := stage.Run(ctx, st); err != nil {
			return nil, fmt.Errorf("stage %s: %w", stage.Name(), err)
		}
		r.logger.Info("stage complete",
			"run_id", st.RunID,
			"stage", stage.Name(),
			"duration", time.Since(start))
	}

	rep := buildReport(st, time.Now())
	r.logger.Info("pipeline run complete",
		"run_id", st.RunID,
		"document_id", doc.ID,
		"criteria", len(rep.Criteria))
	return rep, nil
}

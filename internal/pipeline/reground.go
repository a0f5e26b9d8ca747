package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/clinsift/clinsift/internal/criteria"
	"github.com/clinsift/clinsift/internal/document"
)

// Reground runs only the grounding stage over criteria extracted by an
// earlier run, producing a fresh report under a new run ID. The extraction
// stages are not re-run; page indices are carried over from the source run
// for provenance.
func Reground(ctx context.Context, doc *document.Document, crits []criteria.Criterion, pageIndices []int, gs *GroundStage, logger *slog.Logger) (*Report, error) {
	if doc == nil || doc.ID == "" {
		return nil, fmt.Errorf("reground: document identity required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	st := &State{
		Doc:            doc,
		RunID:          uuid.New().String(),
		PageIndices:    pageIndices,
		Criteria:       crits,
		RawCriteriaLen: len(crits),
	}

	logger.Info("reground starting",
		"run_id", st.RunID,
		"document_id", doc.ID,
		"criteria", len(crits))

	start := time.Now()
	if err := gs.Run(ctx, st); err != nil {
		return nil, fmt.Errorf("stage %s: %w", gs.Name(), err)
	}
	logger.Info("reground complete",
		"run_id", st.RunID,
		"duration", time.Since(start))

	return buildReport(st, time.Now()), nil
}

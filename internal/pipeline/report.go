package pipeline

import (
	"time"

	"github.com/clinsift/clinsift/internal/criteria"
)

// GroundedCriterion pairs one deduplicated criterion with its grounding.
type GroundedCriterion struct {
	Criterion    criteria.Criterion       `json:"criterion" yaml:"criterion"`
	Grounding    criteria.GroundingResult `json:"grounding" yaml:"grounding"`
	Completeness criteria.Completeness    `json:"completeness" yaml:"completeness"`
}

// Summary counts how the run's units finished.
type Summary struct {
	PagesSelected      int `json:"pages_selected" yaml:"pages_selected"`
	ParagraphsSelected int `json:"paragraphs_selected" yaml:"paragraphs_selected"`
	CriteriaExtracted  int `json:"criteria_extracted" yaml:"criteria_extracted"`
	CriteriaAfterDedup int `json:"criteria_after_dedup" yaml:"criteria_after_dedup"`

	ParagraphsDegraded int `json:"paragraphs_degraded" yaml:"paragraphs_degraded"`
	ParagraphsFailed   int `json:"paragraphs_failed" yaml:"paragraphs_failed"`
	ParagraphsSkipped  int `json:"paragraphs_skipped" yaml:"paragraphs_skipped"`

	CriteriaUngrounded int `json:"criteria_ungrounded" yaml:"criteria_ungrounded"`
	CriteriaDegraded   int `json:"criteria_degraded" yaml:"criteria_degraded"`
	CriteriaFailed     int `json:"criteria_failed" yaml:"criteria_failed"`
	CriteriaSkipped    int `json:"criteria_skipped" yaml:"criteria_skipped"`
}

// Report is the pipeline's final output for one document, ready for human
// review.
type Report struct {
	RunID       string    `json:"run_id" yaml:"run_id"`
	DocumentID  string    `json:"document_id" yaml:"document_id"`
	Title       string    `json:"title,omitempty" yaml:"title,omitempty"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`

	PageIndices []int               `json:"page_indices" yaml:"page_indices"`
	Criteria    []GroundedCriterion `json:"criteria" yaml:"criteria"`
	Summary     Summary             `json:"summary" yaml:"summary"`
}

// buildReport assembles the report from a finished run state. Criteria keep
// their deduplicated document order.
func buildReport(st *State, now time.Time) *Report {
	rep := &Report{
		RunID:       st.RunID,
		DocumentID:  st.Doc.ID,
		Title:       st.Doc.Title,
		GeneratedAt: now,
		PageIndices: st.PageIndices,
	}

	rep.Summary.PagesSelected = len(st.PageIndices)
	rep.Summary.ParagraphsSelected = len(st.ParagraphRefs)
	rep.Summary.CriteriaExtracted = st.RawCriteriaLen
	rep.Summary.CriteriaAfterDedup = len(st.Criteria)

	for _, ext := range st.Extractions {
		switch ext.Completeness {
		case criteria.Degraded:
			rep.Summary.ParagraphsDegraded++
		case criteria.Failed:
			rep.Summary.ParagraphsFailed++
		case criteria.Skipped:
			rep.Summary.ParagraphsSkipped++
		}
	}

	for _, c := range st.Criteria {
		gc := GroundedCriterion{Criterion: c}
		if gr, ok := st.Groundings[c.ID]; ok {
			gc.Grounding = gr.Result
			gc.Completeness = gr.Completeness
		} else {
			gc.Grounding = criteria.GroundingResult{CriterionID: c.ID}
			gc.Completeness = criteria.Skipped
		}

		switch gc.Completeness {
		case criteria.Ungrounded:
			rep.Summary.CriteriaUngrounded++
		case criteria.Degraded:
			rep.Summary.CriteriaDegraded++
		case criteria.Failed:
			rep.Summary.CriteriaFailed++
		case criteria.Skipped:
			rep.Summary.CriteriaSkipped++
		}

		rep.Criteria = append(rep.Criteria, gc)
	}

	return rep
}

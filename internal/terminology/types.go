// Package terminology talks to an HTTP medical-terminology service:
// concept search over standardized ontologies plus semantic-type lookup for
// disambiguating homonymous terms.
package terminology

import "errors"

// Candidate is one concept returned by a search, in service ranking order.
type Candidate struct {
	Code        string  `json:"code"`
	DisplayName string  `json:"display_name"`
	Ontology    string  `json:"ontology"`
	Confidence  float64 `json:"confidence"`
}

// SemanticType describes a concept's semantic category (e.g. "Disease or
// Syndrome", "Laboratory Procedure").
type SemanticType struct {
	ConceptID string `json:"concept_id"`
	Type      string `json:"semantic_type"`
}

// ErrRateLimited is surfaced when the service returns 429 after the retry
// budget is spent. Callers treat it as retryable rather than fatal.
var ErrRateLimited = errors.New("terminology service rate limited")

// searchResponse is the wire shape of a search reply.
type searchResponse struct {
	Results []Candidate `json:"results"`
}

// semanticTypeResponse is the wire shape of a semantic-type reply.
type semanticTypeResponse struct {
	ConceptID    string `json:"concept_id"`
	SemanticType string `json:"semantic_type"`
}

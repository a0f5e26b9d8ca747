package medtext

import (
	"context"
	"fmt"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

const clarifySystemPrompt = `You resolve ambiguities in clinical-trial protocol paragraphs. Given a
paragraph and a specific question about it, answer from the paragraph text
alone. If the paragraph does not settle the question, say what is unknown
rather than guessing.`

func clarifySchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"answer": map[string]any{"type": "string"},
		},
		"required":             []string{"answer"},
		"additionalProperties": false,
	}
}

// ClarifyCache memoizes clarification answers per (paragraph, question) for
// the duration of one pipeline run. Insert-once: concurrent callers asking
// the same question about the same paragraph share a single model call.
type ClarifyCache struct {
	cache *gocache.Cache
	group singleflight.Group
}

// NewClarifyCache creates an empty per-run cache. Entries never expire; the
// cache's lifetime is the run's lifetime.
func NewClarifyCache() *ClarifyCache {
	return &ClarifyCache{
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

func clarifyKey(pageIdx, paraIdx int, question string) string {
	return fmt.Sprintf("%d:%d:%s", pageIdx, paraIdx, question)
}

// Clarify answers a question about one paragraph, memoized per run.
func (s *Service) Clarify(ctx context.Context, cache *ClarifyCache, pageIdx, paraIdx int, paragraphText, question string) (string, error) {
	key := clarifyKey(pageIdx, paraIdx, question)

	if answer, found := cache.cache.Get(key); found {
		return answer.(string), nil
	}

	answer, err, _ := cache.group.Do(key, func() (any, error) {
		// Re-check: a previous flight may have populated the cache.
		if cached, found := cache.cache.Get(key); found {
			return cached, nil
		}

		var out struct {
			Answer string `json:"answer"`
		}
		err := s.gen.Unmarshal(ctx, newRequest(
			s.model,
			"medtext.clarify",
			clarifySystemPrompt,
			fmt.Sprintf("Paragraph:\n%s\n\nQuestion:\n%s", paragraphText, question),
			jsonSchema("clarification", clarifySchema()),
		), &out)
		if err != nil {
			return "", err
		}

		cache.cache.SetDefault(key, out.Answer)
		return out.Answer, nil
	})
	if err != nil {
		return "", err
	}
	return answer.(string), nil
}

package criteria

import (
	"sort"
	"strings"
	"unicode"
)

// DefaultSimilarityThreshold is the near-duplicate cutoff. A threshold of
// 1.0 (or above) disables near-duplicate detection; exact normalized-text
// matches always collapse.
const DefaultSimilarityThreshold = 0.92

// Normalize produces the canonical form used for duplicate grouping:
// lowercase, whitespace collapsed, trailing punctuation stripped.
func Normalize(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = strings.Join(strings.Fields(text), " ")
	return strings.TrimRightFunc(text, func(r rune) bool {
		return unicode.IsPunct(r)
	})
}

// Dedup groups criteria into equivalence classes by normalized-text
// similarity and keeps one survivor per class: the member with the highest
// confidence, ties broken by earliest source paragraph position. Input order
// does not affect which criterion survives. Idempotent.
func Dedup(items []Criterion, threshold float64) []Criterion {
	if len(items) <= 1 {
		return append([]Criterion(nil), items...)
	}

	type class struct {
		key     string
		members []Criterion
	}

	var classes []*class
	byKey := make(map[string]*class)

	// Process in a position-stable order so class keys (and therefore
	// near-duplicate grouping) don't depend on caller ordering.
	ordered := append([]Criterion(nil), items...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].SourcePageIndex != ordered[j].SourcePageIndex {
			return ordered[i].SourcePageIndex < ordered[j].SourcePageIndex
		}
		return ordered[i].SourceParagraphIndex < ordered[j].SourceParagraphIndex
	})

	for _, c := range ordered {
		key := Normalize(c.Text)

		// Mandatory: exact normalized match.
		if cl, ok := byKey[key]; ok {
			cl.members = append(cl.members, c)
			continue
		}

		// Optional: near-duplicate match against existing class keys.
		var matched *class
		if threshold < 1.0 {
			for _, cl := range classes {
				if Similarity(key, cl.key) >= threshold {
					matched = cl
					break
				}
			}
		}

		if matched != nil {
			matched.members = append(matched.members, c)
			byKey[key] = matched
			continue
		}

		cl := &class{key: key, members: []Criterion{c}}
		classes = append(classes, cl)
		byKey[key] = cl
	}

	survivors := make([]Criterion, 0, len(classes))
	for _, cl := range classes {
		survivors = append(survivors, survivor(cl.members))
	}
	return survivors
}

// survivor picks the class member with the highest confidence; ties break to
// the earliest source position.
func survivor(members []Criterion) Criterion {
	best := members[0]
	for _, c := range members[1:] {
		switch {
		case c.Confidence > best.Confidence:
			best = c
		case c.Confidence == best.Confidence && earlier(c, best):
			best = c
		}
	}
	return best
}

func earlier(a, b Criterion) bool {
	if a.SourcePageIndex != b.SourcePageIndex {
		return a.SourcePageIndex < b.SourcePageIndex
	}
	return a.SourceParagraphIndex < b.SourceParagraphIndex
}

// Similarity returns a [0,1] string similarity based on edit distance over
// the normalized forms. 1.0 means identical.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	dist := levenshtein(a, b)
	longer := len(a)
	if len(b) > longer {
		longer = len(b)
	}
	return 1.0 - float64(dist)/float64(longer)
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

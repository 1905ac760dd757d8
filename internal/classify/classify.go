// Package classify decides a company's category from extracted keyword hits.
package classify

import (
	"slices"

	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/vocab"
)

// Classifier scores keyword hits per category. It holds no mutable state and
// is safe for concurrent use.
type Classifier struct {
	vocab *vocab.Vocabulary
}

// New creates a Classifier over v.
func New(v *vocab.Vocabulary) *Classifier {
	return &Classifier{vocab: v}
}

// Classify returns the category with strictly the most distinct keyword hits.
// No hits, or a tie for the top score, yields Unknown; a tie also sets
// Ambiguous. Hits for categories outside the vocabulary are ignored.
func (c *Classifier) Classify(signals model.ExtractedSignals) model.CompanyContext {
	hits := model.SortKeywordHits(signals.KeywordHits)

	scores := make(map[model.Category]int)
	matched := make(map[model.Category][]string)
	for _, h := range hits {
		if h.Category == model.CategoryUnknown || (c.vocab != nil && !c.vocab.Has(h.Category)) {
			continue
		}
		scores[h.Category]++
		matched[h.Category] = append(matched[h.Category], h.Keyword)
	}
	if len(scores) == 0 {
		return model.UnknownContext()
	}

	var best model.Category
	top, tied := 0, false
	for cat, n := range scores {
		switch {
		case n > top:
			best, top, tied = cat, n, false
		case n == top:
			tied = true
		}
	}

	if tied {
		zap.L().Debug("classify: tie folded into unknown", zap.Int("score", top), zap.Any("scores", scores))
		return model.CompanyContext{
			Category:  model.CategoryUnknown,
			Scores:    scores,
			Ambiguous: true,
		}
	}

	signalsFor := matched[best]
	slices.Sort(signalsFor)
	return model.CompanyContext{
		Category:          best,
		ConfidenceSignals: signalsFor,
		Scores:            scores,
	}
}

package model

import "sort"

// Category is a company-type classification label.
type Category string

// CategoryUnknown is the explicit fallback category. It is never absent.
const CategoryUnknown Category = "Unknown"

// KeywordHit records one vocabulary keyword found on a page.
type KeywordHit struct {
	Category Category `json:"category"`
	Keyword  string   `json:"keyword"`
}

// ExtractedSignals is the signal-bearing text pulled from a fetched page.
// Empty fields are valid for sparse pages.
type ExtractedSignals struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	BodyExcerpt string       `json:"body_excerpt,omitempty"`
	Digest      string       `json:"digest,omitempty"`
	Emails      []string     `json:"emails,omitempty"`
	KeywordHits []KeywordHit `json:"keyword_hits,omitempty"`
}

// Empty reports whether no signal was extracted at all.
func (s ExtractedSignals) Empty() bool {
	return s.Title == "" && s.Description == "" && s.BodyExcerpt == "" &&
		len(s.Emails) == 0 && len(s.KeywordHits) == 0
}

// ContactEmail returns the first email found, or "".
func (s ExtractedSignals) ContactEmail() string {
	if len(s.Emails) == 0 {
		return ""
	}
	return s.Emails[0]
}

// SortKeywordHits orders hits by category then keyword and drops duplicates.
func SortKeywordHits(hits []KeywordHit) []KeywordHit {
	if len(hits) == 0 {
		return nil
	}
	out := make([]KeywordHit, len(hits))
	copy(out, hits)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Keyword < out[j].Keyword
	})
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}

// CompanyContext is the classification of a company.
type CompanyContext struct {
	Category Category `json:"category"`
	// ConfidenceSignals lists the keywords that decided Category.
	ConfidenceSignals []string         `json:"confidence_signals,omitempty"`
	Scores            map[Category]int `json:"scores,omitempty"`
	// Ambiguous is set when a tie between categories folded into Unknown.
	Ambiguous bool `json:"ambiguous,omitempty"`
}

// UnknownContext returns the fallback context used when nothing could be
// classified.
func UnknownContext() CompanyContext {
	return CompanyContext{Category: CategoryUnknown}
}

// MessageSource tells whether a message came from the language model or the
// static template.
type MessageSource string

const (
	MessageSourceLLM      MessageSource = "llm"
	MessageSourceTemplate MessageSource = "template"
)

// OutreachMessage is a generated outreach message. Body is never empty.
type OutreachMessage struct {
	CompanyName    string        `json:"company_name"`
	Category       Category      `json:"category"`
	Body           string        `json:"body"`
	Source         MessageSource `json:"source"`
	FallbackReason string        `json:"fallback_reason,omitempty"`
}

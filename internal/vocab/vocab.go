// Package vocab holds the category vocabulary: trigger keywords and a
// pain-point angle per company category. A Vocabulary is immutable once built
// and is passed explicitly to the extractor, classifier and generator.
package vocab

import (
	"bytes"
	_ "embed"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/outreach-cli/internal/model"
)

//go:embed default.yaml
var defaultYAML []byte

// DefaultFallbackAngle is used for Unknown when a document sets none.
const DefaultFallbackAngle = "manual, repetitive workflows that slow growing teams down"

// Rule is the on-disk form of one category.
type Rule struct {
	Category model.Category `yaml:"category"`
	Angle    string         `yaml:"angle,omitempty"`
	Keywords []string       `yaml:"keywords,flow"`
}

// Document is the on-disk form of a vocabulary file.
type Document struct {
	FallbackAngle string `yaml:"fallback_angle"`
	Categories    []Rule `yaml:"categories"`
}

type compiledRule struct {
	category model.Category
	angle    string
	keywords []string
	patterns []*regexp.Regexp
}

// Vocabulary is a compiled, read-only keyword table.
type Vocabulary struct {
	rules         []compiledRule
	index         map[model.Category]int
	fallbackAngle string
}

var loadDefault = sync.OnceValue(func() *Vocabulary {
	v, err := Parse(defaultYAML)
	if err != nil {
		panic(eris.Wrap(err, "vocab: embedded default"))
	}
	return v
})

// Default returns the built-in vocabulary.
func Default() *Vocabulary { return loadDefault() }

// Load reads a vocabulary YAML file.
func Load(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "vocab: read file")
	}
	return Parse(data)
}

// Parse decodes and compiles a vocabulary document. Unknown fields are rejected.
func Parse(data []byte) (*Vocabulary, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, eris.Wrap(err, "vocab: decode yaml")
	}
	return New(doc)
}

// New validates and compiles doc.
func New(doc Document) (*Vocabulary, error) {
	if len(doc.Categories) == 0 {
		return nil, eris.New("vocab: no categories defined")
	}

	fallback := strings.TrimSpace(doc.FallbackAngle)
	if fallback == "" {
		fallback = DefaultFallbackAngle
	}

	v := &Vocabulary{
		index:         make(map[model.Category]int, len(doc.Categories)),
		fallbackAngle: fallback,
	}
	fold := cases.Fold()

	for _, r := range doc.Categories {
		cat := model.Category(strings.TrimSpace(string(r.Category)))
		if cat == "" {
			return nil, eris.New("vocab: category with empty name")
		}
		if strings.EqualFold(string(cat), string(model.CategoryUnknown)) {
			return nil, eris.Errorf("vocab: %q is reserved for the fallback", model.CategoryUnknown)
		}
		if _, dup := v.index[cat]; dup {
			return nil, eris.Errorf("vocab: duplicate category %q", cat)
		}

		cr := compiledRule{category: cat, angle: strings.TrimSpace(r.Angle)}
		seen := make(map[string]bool, len(r.Keywords))
		for _, kw := range r.Keywords {
			norm := strings.Join(strings.Fields(fold.String(kw)), " ")
			if norm == "" || seen[norm] {
				continue
			}
			seen[norm] = true
			cr.keywords = append(cr.keywords, norm)
			cr.patterns = append(cr.patterns, keywordPattern(norm))
		}
		if len(cr.keywords) == 0 {
			return nil, eris.Errorf("vocab: category %q has no keywords", cat)
		}

		v.index[cat] = len(v.rules)
		v.rules = append(v.rules, cr)
	}
	return v, nil
}

var separatorRe = regexp.MustCompile(`[\s-]+`)

// keywordPattern matches kw as a whole word or phrase; spaces and hyphens
// inside kw match either separator.
func keywordPattern(kw string) *regexp.Regexp {
	parts := separatorRe.Split(kw, -1)
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile(`(?:^|[^\p{L}\p{N}])(` + strings.Join(parts, `[\s-]+`) + `)(?:$|[^\p{L}\p{N}])`)
}

// Categories returns the categories in declaration order.
func (v *Vocabulary) Categories() []model.Category {
	out := make([]model.Category, len(v.rules))
	for i, r := range v.rules {
		out[i] = r.category
	}
	return out
}

// Has reports whether c is a declared category.
func (v *Vocabulary) Has(c model.Category) bool {
	_, ok := v.index[c]
	return ok
}

// Keywords returns a copy of the normalized keywords for c.
func (v *Vocabulary) Keywords(c model.Category) []string {
	i, ok := v.index[c]
	if !ok {
		return nil
	}
	return append([]string(nil), v.rules[i].keywords...)
}

// Angle returns the pain-point angle for c. Unknown and undeclared
// categories, or categories without an angle, get the fallback angle.
func (v *Vocabulary) Angle(c model.Category) string {
	if i, ok := v.index[c]; ok && v.rules[i].angle != "" {
		return v.rules[i].angle
	}
	return v.fallbackAngle
}

// FallbackAngle returns the generic angle used for Unknown.
func (v *Vocabulary) FallbackAngle() string { return v.fallbackAngle }

// Scan returns every vocabulary keyword found in text, case-insensitively,
// sorted by category and keyword. A keyword whose every occurrence lies
// inside a longer keyword's match is not reported, so "fleet management"
// does not also count as "fleet".
func (v *Vocabulary) Scan(text string) []model.KeywordHit {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	folded := cases.Fold().String(text)

	var found []match
	for _, r := range v.rules {
		for i, re := range r.patterns {
			if spans := keywordSpans(re, folded); len(spans) > 0 {
				found = append(found, match{
					hit:   model.KeywordHit{Category: r.category, Keyword: r.keywords[i]},
					spans: spans,
				})
			}
		}
	}

	var hits []model.KeywordHit
	for i, m := range found {
		if !shadowed(m, found, i) {
			hits = append(hits, m.hit)
		}
	}
	return model.SortKeywordHits(hits)
}

// keywordSpans returns the byte span of every keyword occurrence. Each search
// resumes at the end of the keyword so the trailing boundary can lead the
// next match.
func keywordSpans(re *regexp.Regexp, s string) [][2]int {
	var out [][2]int
	for off := 0; off < len(s); {
		loc := re.FindStringSubmatchIndex(s[off:])
		if loc == nil {
			break
		}
		out = append(out, [2]int{off + loc[2], off + loc[3]})
		off += loc[3]
	}
	return out
}

type match struct {
	hit   model.KeywordHit
	spans [][2]int
}

// shadowed reports whether every span of found[self] sits inside a longer
// span of another match.
func shadowed(m match, found []match, self int) bool {
	for _, sp := range m.spans {
		covered := false
		for j, other := range found {
			if j == self {
				continue
			}
			for _, o := range other.spans {
				if o[0] <= sp[0] && sp[1] <= o[1] && o[1]-o[0] > sp[1]-sp[0] {
					covered = true
					break
				}
			}
			if covered {
				break
			}
		}
		if !covered {
			return false
		}
	}
	return true
}

// Document returns the vocabulary in its on-disk form.
func (v *Vocabulary) Document() Document {
	doc := Document{FallbackAngle: v.fallbackAngle}
	for _, r := range v.rules {
		doc.Categories = append(doc.Categories, Rule{
			Category: r.category,
			Angle:    r.angle,
			Keywords: append([]string(nil), r.keywords...),
		})
	}
	return doc
}

// Marshal renders the vocabulary as YAML.
func (v *Vocabulary) Marshal() ([]byte, error) {
	out, err := yaml.Marshal(v.Document())
	if err != nil {
		return nil, eris.Wrap(err, "vocab: encode yaml")
	}
	return out, nil
}

// Package extract pulls signal-bearing text out of fetched page content.
package extract

import (
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/vocab"
)

const (
	// DefaultExcerptChars bounds ExtractedSignals.BodyExcerpt, in runes.
	DefaultExcerptChars = 4000
	// DefaultDigestChars bounds ExtractedSignals.Digest, in runes.
	DefaultDigestChars = 2000
)

// noiseSelector lists elements whose text never describes the business.
const noiseSelector = "script, style, noscript, svg, template, iframe, nav, footer"

var (
	htmlMarkerRe = regexp.MustCompile(`(?i)<(!doctype|html|head|body|title|meta|div|p|section|main)[\s>/]`)
	emailRe      = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9-]+(?:\.[A-Za-z0-9-]+)*\.[A-Za-z]{2,}`)
	assetSuffix  = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".css", ".js"}
)

// Options configures an Extractor.
type Options struct {
	ExcerptChars int
	DigestChars  int
}

// Extractor turns raw page content into ExtractedSignals.
type Extractor struct {
	vocab *vocab.Vocabulary
	opts  Options
}

// New creates an Extractor scanning for the keywords of v.
func New(v *vocab.Vocabulary, opts Options) *Extractor {
	if opts.ExcerptChars <= 0 {
		opts.ExcerptChars = DefaultExcerptChars
	}
	if opts.DigestChars <= 0 {
		opts.DigestChars = DefaultDigestChars
	}
	return &Extractor{vocab: v, opts: opts}
}

// Extract never fails. Content that is not HTML, or that cannot be parsed,
// is treated as plain text.
func (e *Extractor) Extract(content string) model.ExtractedSignals {
	if strings.TrimSpace(content) == "" {
		return model.ExtractedSignals{}
	}

	var sig model.ExtractedSignals
	var body string
	if htmlMarkerRe.MatchString(content) {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
		if err != nil {
			zap.L().Debug("extract: html parse failed, using raw text", zap.Error(err))
			body = collapseSpace(content)
		} else {
			sig.Title, sig.Description = pageMeta(doc)
			sig.Emails = mailtoEmails(doc)
			doc.Find(noiseSelector).Remove()
			bodySel := doc.Find("body")
			if bodySel.Length() == 0 {
				bodySel = doc.Selection
			}
			body = visibleText(bodySel)
			sig.Digest = e.digest(bodySel, body)
		}
	} else {
		body = collapseSpace(content)
	}

	sig.BodyExcerpt = truncateRunes(body, e.opts.ExcerptChars)
	sig.Emails = mergeEmails(sig.Emails, findEmails(content))
	if e.vocab != nil {
		sig.KeywordHits = e.vocab.Scan(strings.Join([]string{sig.Title, sig.Description, body}, " \n "))
	}
	return sig
}

func pageMeta(doc *goquery.Document) (title, description string) {
	title = collapseSpace(doc.Find("title").First().Text())
	if title == "" {
		title = metaContent(doc, `meta[property="og:title"]`)
	}
	description = metaContent(doc, `meta[name="description"]`)
	if description == "" {
		description = metaContent(doc, `meta[property="og:description"]`)
	}
	return title, description
}

func metaContent(doc *goquery.Document, selector string) string {
	v, _ := doc.Find(selector).First().Attr("content")
	return collapseSpace(v)
}

// visibleText joins every text node under sel with single spaces, so block
// elements never run their words together.
func visibleText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return collapseSpace(b.String())
}

func (e *Extractor) digest(sel *goquery.Selection, fallback string) string {
	inner, err := sel.Html()
	if err == nil {
		md, err := htmltomarkdown.ConvertString(inner)
		if err == nil && strings.TrimSpace(md) != "" {
			return truncateRunes(strings.TrimSpace(md), e.opts.DigestChars)
		}
		if err != nil {
			zap.L().Debug("extract: markdown conversion failed", zap.Error(err))
		}
	}
	return truncateRunes(fallback, e.opts.DigestChars)
}

func mailtoEmails(doc *goquery.Document) []string {
	var out []string
	doc.Find(`a[href^="mailto:"]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		addr := strings.TrimPrefix(href, "mailto:")
		if i := strings.IndexByte(addr, '?'); i >= 0 {
			addr = addr[:i]
		}
		if emailRe.MatchString(addr) {
			out = append(out, addr)
		}
	})
	return out
}

func findEmails(text string) []string {
	return emailRe.FindAllString(text, -1)
}

// mergeEmails lower-cases and deduplicates, keeping first-seen order and
// dropping asset file names such as logo@2x.png.
func mergeEmails(lists ...[]string) []string {
	var out []string
	for _, list := range lists {
		for _, addr := range list {
			addr = strings.ToLower(strings.TrimSpace(addr))
			if addr == "" || isAsset(addr) || slices.Contains(out, addr) {
				continue
			}
			out = append(out, addr)
		}
	}
	return out
}

func isAsset(addr string) bool {
	for _, s := range assetSuffix {
		if strings.HasSuffix(addr, s) {
			return true
		}
	}
	return false
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return strings.TrimSpace(s[:pos])
		}
		i++
	}
	return s
}

package generate

import (
	"fmt"
	"strings"

	"github.com/sells-group/outreach-cli/internal/model"
)

const promptFormat = `You are a senior B2B sales development rep at %[1]s.
Target company: %[2]s
Company category: %[3]s
What %[1]s sells: %[4]s

Website data:
%[5]s

Write a personalized cold email to the founder of %[2]s.
1. Hook: mention one specific detail from the website data.
2. Pain point: ask whether they are struggling with %[6]s.
3. Solution: briefly explain how %[1]s can help.
4. Call to action: ask for a 10-minute chat.

Keep it under %[7]d words. No fluff. Return only the email body, without a subject line.`

const noWebsiteData = "(no website data available)"

// Prompt builds the model prompt for one company.
func (g *Generator) Prompt(name string, cc model.CompanyContext, signals model.ExtractedSignals) string {
	category := string(cc.Category)
	if cc.Category == model.CategoryUnknown {
		category = "unknown"
	}
	return fmt.Sprintf(promptFormat,
		g.opts.Sender,
		name,
		category,
		g.opts.Offer,
		g.websiteData(signals),
		g.vocab.Angle(cc.Category),
		g.opts.MaxWords,
	)
}

func (g *Generator) websiteData(s model.ExtractedSignals) string {
	var b strings.Builder
	if s.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", s.Title)
	}
	if s.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", s.Description)
	}
	text := s.Digest
	if text == "" {
		text = s.BodyExcerpt
	}
	if r := []rune(text); len(r) > g.opts.ContextChars {
		text = string(r[:g.opts.ContextChars])
	}
	if text != "" {
		b.WriteString(text)
	}
	if b.Len() == 0 {
		return noWebsiteData
	}
	return strings.TrimSpace(b.String())
}

// Template renders the static message. It always names the company.
func (g *Generator) Template(name string, cc model.CompanyContext) string {
	audience := "teams like yours"
	if cc.Category != "" && cc.Category != model.CategoryUnknown {
		audience = string(cc.Category) + " teams"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s team,\n\n", name)
	fmt.Fprintf(&b, "I came across %s and wanted to reach out. A lot of %s tell us they struggle with %s.\n\n",
		name, audience, g.vocab.Angle(cc.Category))
	fmt.Fprintf(&b, "At %s we provide %s. Would you be open to a 10-minute chat next week to see whether it could help %s?\n\n",
		g.opts.Sender, g.opts.Offer, name)
	fmt.Fprintf(&b, "Best,\n%s", g.opts.Sender)
	return b.String()
}

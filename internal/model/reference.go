// Package model defines the data passed between the outreach pipeline stages.
package model

import (
	"net"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrMalformedReference is returned (wrapped) when a company reference cannot be
// normalized to any URL.
var ErrMalformedReference = eris.New("malformed company reference")

// guessTLD is appended to bare company names when guessing a domain.
const guessTLD = ".com"

// CompanyReference is a user-supplied company identifier (name or URL) together
// with the canonical URL it resolves to. The zero value is not resolvable.
type CompanyReference struct {
	input   string
	url     string
	guessed bool
	invalid string
}

// ParseReference normalizes raw into a CompanyReference. It never fails: input
// that cannot be resolved yields a reference whose Resolvable reports false.
func ParseReference(raw string) CompanyReference {
	input := strings.TrimSpace(raw)
	ref := CompanyReference{input: input}

	if input == "" {
		ref.invalid = "empty reference"
		return ref
	}

	if looksLikeURL(input) {
		u, err := canonicalURL(input)
		if err != nil {
			ref.invalid = err.Error()
			return ref
		}
		ref.url = u
		return ref
	}

	slug := domainSlug(input)
	if slug == "" {
		ref.invalid = "no letters or digits to build a domain from"
		return ref
	}
	ref.url = "https://" + slug + guessTLD
	ref.guessed = true
	return ref
}

// Input returns the trimmed reference as the user supplied it.
func (r CompanyReference) Input() string { return r.input }

// URL returns the canonical URL, or "" when the reference is not resolvable.
func (r CompanyReference) URL() string { return r.url }

// Guessed reports whether the URL was derived from a bare company name.
func (r CompanyReference) Guessed() bool { return r.guessed }

// Resolvable reports whether the reference normalized to a URL.
func (r CompanyReference) Resolvable() bool { return r.url != "" }

// Err returns a wrapped ErrMalformedReference for unresolvable references and
// nil otherwise.
func (r CompanyReference) Err() error {
	if r.Resolvable() {
		return nil
	}
	return eris.Wrapf(ErrMalformedReference, "%q: %s", r.input, r.invalid)
}

// ParseReferences parses every raw input, preserving order.
func ParseReferences(raws []string) []CompanyReference {
	refs := make([]CompanyReference, len(raws))
	for i, raw := range raws {
		refs[i] = ParseReference(raw)
	}
	return refs
}

func looksLikeURL(s string) bool {
	if strings.Contains(s, "://") {
		return true
	}
	if strings.ContainsAny(s, " \t") {
		return false
	}
	return strings.Contains(s, ".") || strings.HasPrefix(strings.ToLower(s), "localhost")
}

var hostLabelRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

func canonicalURL(s string) (string, error) {
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", eris.Wrap(err, "parse url")
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", eris.Errorf("unsupported scheme %q", u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", eris.New("missing host")
	}
	if !validHost(host) {
		return "", eris.Errorf("invalid host %q", host)
	}

	out := url.URL{Scheme: scheme, Host: host, Path: u.Path, RawPath: u.RawPath, RawQuery: u.RawQuery}
	if port := u.Port(); port != "" {
		out.Host = net.JoinHostPort(host, port)
	}
	if out.Path == "/" {
		out.Path = ""
	}
	return out.String(), nil
}

func validHost(host string) bool {
	if host == "localhost" || net.ParseIP(host) != nil {
		return true
	}
	labels := strings.Split(strings.TrimSuffix(host, "."), ".")
	if len(labels) < 2 {
		return false
	}
	for _, l := range labels {
		if !hostLabelRe.MatchString(l) {
			return false
		}
	}
	tld := labels[len(labels)-1]
	for _, c := range tld {
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return len(tld) >= 2
}

// domainSlug folds accents and keeps lowercase ASCII letters and digits:
// "Café Nuñez & Co" → "cafenunezco".
func domainSlug(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	var b strings.Builder
	for _, c := range strings.ToLower(folded) {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteRune(c)
		}
	}
	return b.String()
}

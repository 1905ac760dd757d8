package scrape

import (
	"net/http"
	"strings"
)

// BlockType describes the kind of anti-bot block detected.
type BlockType string

const (
	BlockNone        BlockType = ""
	BlockForbidden   BlockType = "forbidden"
	BlockRateLimited BlockType = "rate_limited"
	BlockCloudflare  BlockType = "cloudflare"
	BlockCaptcha     BlockType = "captcha"
	BlockJSShell     BlockType = "js_shell"
)

// DetectBlock inspects a response status, headers and body for signs of
// anti-bot protection. Explicit 403 and 429 always count as blocks.
func DetectBlock(status int, header http.Header, body []byte) BlockType {
	if status == http.StatusServiceUnavailable || status == http.StatusForbidden {
		if header.Get("Cf-Ray") != "" || header.Get("Cf-Mitigated") != "" ||
			strings.EqualFold(header.Get("Server"), "cloudflare") {
			return BlockCloudflare
		}
	}
	switch status {
	case http.StatusForbidden:
		return BlockForbidden
	case http.StatusTooManyRequests:
		return BlockRateLimited
	}

	lower := strings.ToLower(string(body))

	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") ||
		strings.Contains(lower, "cf-chl-") ||
		(strings.Contains(lower, "cloudflare") && strings.Contains(lower, "challenge")) {
		return BlockCloudflare
	}

	// Captcha walls are short pages; long marketing pages often mention
	// reCAPTCHA in their form scripts.
	if len(body) < 20_000 &&
		(strings.Contains(lower, "captcha") || strings.Contains(lower, "are you a robot") ||
			strings.Contains(lower, "verify you are human")) {
		return BlockCaptcha
	}

	if len(body) < 2000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "enable javascript") {
			return BlockJSShell
		}
		if strings.Contains(lower, `http-equiv="refresh"`) && strings.Contains(lower, "challenge") {
			return BlockJSShell
		}
	}

	return BlockNone
}

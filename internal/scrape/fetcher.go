// Package scrape fetches a company's public web page and reports the outcome
// as an explicit model.FetchResult instead of a transport error.
package scrape

import (
	"bytes"
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
)

const (
	// DefaultUserAgent mimics a desktop Chrome browser.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	// DefaultTimeout bounds a single fetch attempt.
	DefaultTimeout = 10 * time.Second
	// DefaultMaxBodyBytes caps how much of a page is read.
	DefaultMaxBodyBytes = 1 << 20
)

// Options configures a Fetcher.
type Options struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
	// Retries is the number of extra attempts on transient network errors.
	// Values above 1 are clamped to 1.
	Retries int
	// RetryBackoff is the pause before the retry.
	RetryBackoff time.Duration
	// Limiter, when set, is waited on before every request.
	Limiter *rate.Limiter
	// Client overrides the default HTTP client.
	Client *http.Client
}

// Fetcher retrieves raw page content for company references.
type Fetcher struct {
	client *http.Client
	opts   Options
}

// NewFetcher creates a Fetcher, filling unset options with defaults.
func NewFetcher(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	opts.Retries = min(max(opts.Retries, 0), 1)
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 250 * time.Millisecond
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		}
	}
	return &Fetcher{client: client, opts: opts}
}

// Timeout returns the per-attempt timeout.
func (f *Fetcher) Timeout() time.Duration { return f.opts.Timeout }

// Fetch retrieves the page for ref. It always returns exactly one FetchResult
// variant; transport errors are classified, never returned.
func (f *Fetcher) Fetch(ctx context.Context, ref model.CompanyReference) model.FetchResult {
	if !ref.Resolvable() {
		return model.FetchUnreachable{Cause: ref.Err().Error()}
	}
	target := ref.URL()
	start := time.Now()

	cfg := resilience.RetryConfig{
		MaxAttempts:    1 + f.opts.Retries,
		Backoff:        f.opts.RetryBackoff,
		JitterFraction: 0.2,
		OnRetry:        resilience.RetryLogger("fetch", target),
	}
	result, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (model.FetchResult, error) {
		return f.attempt(ctx, target)
	})
	if err != nil {
		result = classifyError(ctx, target, err, time.Since(start))
	}

	zap.L().Debug("fetch: done",
		zap.String("url", target),
		zap.String("outcome", string(result.Outcome())),
		zap.String("reason", result.Reason()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result
}

// attempt performs one GET. HTTP responses of any status become a
// FetchResult; only transport failures are returned as errors.
func (f *Fetcher) attempt(ctx context.Context, target string) (model.FetchResult, error) {
	if f.opts.Limiter != nil {
		if err := f.opts.Limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetch: rate limiter wait")
		}
	}

	actx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodGet, target, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: create request")
	}
	setBrowserHeaders(req, f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: get")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "fetch: read body")
	}

	return classifyResponse(target, resp, toUTF8(body, resp.Header.Get("Content-Type"))), nil
}

func setBrowserHeaders(req *http.Request, userAgent string) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}

// toUTF8 converts body from the charset named in contentType or the page's
// meta tags. Undecodable bodies are returned unchanged.
func toUTF8(body []byte, contentType string) []byte {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return body
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return body
	}
	return out
}

func classifyResponse(target string, resp *http.Response, body []byte) model.FetchResult {
	if block := DetectBlock(resp.StatusCode, resp.Header, body); block != BlockNone {
		return model.FetchBlocked{URL: target, StatusCode: resp.StatusCode, Cause: string(block)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.FetchUnreachable{URL: target, Cause: fmt.Sprintf("http %d", resp.StatusCode)}
	}

	final := target
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return model.FetchSuccess{URL: final, Content: string(body), StatusCode: resp.StatusCode}
}

func classifyError(ctx context.Context, target string, err error, elapsed time.Duration) model.FetchResult {
	if errors.Is(ctx.Err(), context.Canceled) {
		return model.FetchUnreachable{URL: target, Cause: "cancelled"}
	}
	if resilience.IsTimeout(err) {
		return model.FetchTimeout{URL: target, After: elapsed}
	}
	return model.FetchUnreachable{URL: target, Cause: describeNetError(err)}
}

// describeNetError turns a wrapped transport error into a short cause.
func describeNetError(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsNotFound {
			return "no such host"
		}
		return "dns: " + dnsErr.Err
	}

	var (
		unknownCA x509.UnknownAuthorityError
		hostname  x509.HostnameError
		invalid   x509.CertificateInvalidError
	)
	switch {
	case errors.As(err, &unknownCA):
		return "tls: " + unknownCA.Error()
	case errors.As(err, &hostname):
		return "tls: " + hostname.Error()
	case errors.As(err, &invalid):
		return "tls: " + invalid.Error()
	case errors.Is(err, syscall.ECONNREFUSED):
		return "connection refused"
	case errors.Is(err, syscall.ECONNRESET):
		return "connection reset"
	}
	return eris.Cause(err).Error()
}

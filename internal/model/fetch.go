package model

import (
	"fmt"
	"time"
)

// FetchOutcome names the variant of a FetchResult.
type FetchOutcome string

const (
	FetchOutcomeSuccess     FetchOutcome = "success"
	FetchOutcomeBlocked     FetchOutcome = "blocked"
	FetchOutcomeUnreachable FetchOutcome = "unreachable"
	FetchOutcomeTimeout     FetchOutcome = "timeout"
)

// FetchResult is the outcome of one fetch attempt. It is implemented only by
// FetchSuccess, FetchBlocked, FetchUnreachable and FetchTimeout; callers
// type-switch over those variants.
type FetchResult interface {
	Outcome() FetchOutcome
	// Reason is a short human-readable description for display.
	Reason() string
	fetchResult()
}

// FetchSuccess carries the raw page content of a 2xx response.
type FetchSuccess struct {
	URL        string
	Content    string
	StatusCode int
}

// FetchBlocked means the site refused the request (403/429 or an anti-bot
// challenge page).
type FetchBlocked struct {
	URL        string
	StatusCode int
	Cause      string
}

// FetchUnreachable covers connection, DNS, TLS and non-2xx failures.
type FetchUnreachable struct {
	URL   string
	Cause string
}

// FetchTimeout means the fetch did not complete within its deadline.
type FetchTimeout struct {
	URL   string
	After time.Duration
}

func (FetchSuccess) Outcome() FetchOutcome     { return FetchOutcomeSuccess }
func (FetchBlocked) Outcome() FetchOutcome     { return FetchOutcomeBlocked }
func (FetchUnreachable) Outcome() FetchOutcome { return FetchOutcomeUnreachable }
func (FetchTimeout) Outcome() FetchOutcome     { return FetchOutcomeTimeout }

func (r FetchSuccess) Reason() string { return fmt.Sprintf("http %d", r.StatusCode) }

func (r FetchBlocked) Reason() string {
	if r.StatusCode > 0 {
		return fmt.Sprintf("blocked: %s (http %d)", r.Cause, r.StatusCode)
	}
	return "blocked: " + r.Cause
}

func (r FetchUnreachable) Reason() string { return "unreachable: " + r.Cause }

func (r FetchTimeout) Reason() string {
	return fmt.Sprintf("timeout after %s", r.After.Round(time.Millisecond))
}

func (FetchSuccess) fetchResult()     {}
func (FetchBlocked) fetchResult()     {}
func (FetchUnreachable) fetchResult() {}
func (FetchTimeout) fetchResult()     {}

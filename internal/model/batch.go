package model

import (
	"time"

	"github.com/google/uuid"
)

// ItemStatus is the outcome of one batch item.
type ItemStatus string

const (
	// ItemStatusOK means the page was fetched, classified and a message generated.
	ItemStatusOK ItemStatus = "ok"
	// ItemStatusDegraded means the fetch failed but a fallback message was produced.
	ItemStatusDegraded ItemStatus = "degraded"
	// ItemStatusFailed means no message could be generated for the item.
	ItemStatusFailed ItemStatus = "failed"
)

// BatchItemResult is one row of a BatchReport.
type BatchItemResult struct {
	Index        int              `json:"index"`
	Input        string           `json:"input"`
	URL          string           `json:"url,omitempty"`
	Context      *CompanyContext  `json:"context,omitempty"`
	FetchFailure string           `json:"fetch_failure,omitempty"`
	Message      *OutreachMessage `json:"message,omitempty"`
	Status       ItemStatus       `json:"status"`
	Reason       string           `json:"reason,omitempty"`
	ContactEmail string           `json:"contact_email,omitempty"`
	Duration     time.Duration    `json:"duration_ns"`
}

// Category returns the resolved category, or "" when the item never got one.
func (r BatchItemResult) Category() Category {
	if r.Context == nil {
		return ""
	}
	return r.Context.Category
}

// MessageBody returns the message text, or "" when no message was generated.
func (r BatchItemResult) MessageBody() string {
	if r.Message == nil {
		return ""
	}
	return r.Message.Body
}

// BatchReport is the ordered result of one batch run. A report is built fresh
// for every run and only ever appended to.
type BatchReport struct {
	ID         string            `json:"id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Items      []BatchItemResult `json:"items"`
	// Cancelled is set when the run stopped before dispatching every input.
	Cancelled bool `json:"cancelled,omitempty"`
}

// NewBatchReport starts an empty report with a fresh ID.
func NewBatchReport(capacity int) *BatchReport {
	return &BatchReport{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Items:     make([]BatchItemResult, 0, capacity),
	}
}

// Append adds a computed item to the end of the report.
func (b *BatchReport) Append(item BatchItemResult) {
	b.Items = append(b.Items, item)
}

// BatchSummary counts items by status.
type BatchSummary struct {
	Total    int `json:"total"`
	OK       int `json:"ok"`
	Degraded int `json:"degraded"`
	Failed   int `json:"failed"`
}

// Summary tallies the report's items by status.
func (b *BatchReport) Summary() BatchSummary {
	s := BatchSummary{Total: len(b.Items)}
	for _, it := range b.Items {
		switch it.Status {
		case ItemStatusOK:
			s.OK++
		case ItemStatusDegraded:
			s.Degraded++
		case ItemStatusFailed:
			s.Failed++
		}
	}
	return s
}

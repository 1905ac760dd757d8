package scrape

import (
	"context"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Source fetches the page for a company reference. Implementations classify
// every failure into a FetchResult variant rather than returning errors.
type Source interface {
	Fetch(ctx context.Context, ref model.CompanyReference) model.FetchResult
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, ref model.CompanyReference) model.FetchResult

// Fetch calls f.
func (f SourceFunc) Fetch(ctx context.Context, ref model.CompanyReference) model.FetchResult {
	return f(ctx, ref)
}

var _ Source = (*Fetcher)(nil)

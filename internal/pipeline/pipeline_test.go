package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/classify"
	"github.com/sells-group/outreach-cli/internal/extract"
	"github.com/sells-group/outreach-cli/internal/generate"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/scrape"
	"github.com/sells-group/outreach-cli/internal/vocab"
)

const freightPage = `<html><head><title>Acme Freight</title></head>
<body><p>Fleet management and freight brokerage. Email dispatch@acme.com</p></body></html>`

// pages maps a reference input to a fetch result.
func pages(results map[string]model.FetchResult) scrape.Source {
	return scrape.SourceFunc(func(_ context.Context, ref model.CompanyReference) model.FetchResult {
		if r, ok := results[ref.Input()]; ok {
			return r
		}
		return model.FetchSuccess{URL: ref.URL(), Content: freightPage, StatusCode: 200}
	})
}

func newPipeline(src scrape.Source, completer generate.Completer, opts Options) *Pipeline {
	v := vocab.Default()
	return New(src,
		extract.New(v, extract.Options{}),
		classify.New(v),
		generate.New(v, completer, generate.Options{}),
		opts,
	)
}

func TestRun_MalformedItemIsolated(t *testing.T) {
	refs := model.ParseReferences([]string{"acme.com", "beta.io", "   ", "gamma.co", "delta.com"})
	report := newPipeline(pages(nil), nil, Options{}).Run(context.Background(), refs)

	require.Len(t, report.Items, 5)
	assert.False(t, report.Cancelled)
	assert.NotEmpty(t, report.ID)
	for i, it := range report.Items {
		assert.Equal(t, i, it.Index)
		if i == 2 {
			assert.Equal(t, model.ItemStatusFailed, it.Status)
			assert.Contains(t, it.Reason, "malformed company reference")
			assert.Nil(t, it.Message)
			continue
		}
		assert.Equal(t, model.ItemStatusOK, it.Status, "item %d", i)
		assert.Equal(t, model.Category("Logistics"), it.Category())
		assert.NotEmpty(t, it.MessageBody())
		assert.Equal(t, "dispatch@acme.com", it.ContactEmail)
	}
	assert.Equal(t, model.BatchSummary{Total: 5, OK: 4, Failed: 1}, report.Summary())
}

func TestRun_BlockedIsDegradedWithTemplate(t *testing.T) {
	src := pages(map[string]model.FetchResult{
		"swiggy.com": model.FetchBlocked{URL: "https://swiggy.com", StatusCode: 403, Cause: "forbidden"},
	})
	report := newPipeline(src, nil, Options{}).Run(context.Background(), model.ParseReferences([]string{"swiggy.com"}))

	require.Len(t, report.Items, 1)
	it := report.Items[0]
	assert.Equal(t, model.ItemStatusDegraded, it.Status)
	assert.Equal(t, model.CategoryUnknown, it.Category())
	assert.Contains(t, it.FetchFailure, "http 403")
	assert.Equal(t, it.FetchFailure, it.Reason)
	require.NotNil(t, it.Message)
	assert.Contains(t, it.Message.Body, "swiggy.com")
	assert.Equal(t, model.MessageSourceTemplate, it.Message.Source)
}

func TestRun_FetchFailuresNeverFail(t *testing.T) {
	src := pages(map[string]model.FetchResult{
		"down.com": model.FetchUnreachable{URL: "https://down.com", Cause: "no such host"},
		"slow.com": model.FetchTimeout{URL: "https://slow.com", After: 10 * time.Second},
	})
	report := newPipeline(src, nil, Options{}).Run(context.Background(), model.ParseReferences([]string{"down.com", "slow.com"}))

	require.Len(t, report.Items, 2)
	for _, it := range report.Items {
		assert.Equal(t, model.ItemStatusDegraded, it.Status)
		assert.NotEmpty(t, it.MessageBody())
	}
	assert.Contains(t, report.Items[0].Reason, "no such host")
	assert.Contains(t, report.Items[1].Reason, "timeout")
}

func TestRun_RealFetcherAgainstForbiddenSite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()
	target, err := url.Parse(srv.URL)
	require.NoError(t, err)

	// Route every host to the test server so "swiggy.com" stays the input.
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		r.URL.Scheme = target.Scheme
		r.URL.Host = target.Host
		return http.DefaultTransport.RoundTrip(r)
	})}
	f := scrape.NewFetcher(scrape.Options{Client: client, Timeout: time.Second})

	it := newPipeline(f, nil, Options{}).Process(context.Background(), model.ParseReference("swiggy.com"))
	assert.Equal(t, model.ItemStatusDegraded, it.Status)
	assert.Equal(t, model.CategoryUnknown, it.Category())
	assert.Contains(t, it.MessageBody(), "swiggy.com")
	assert.Contains(t, it.Reason, "blocked")
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestRun_LLMMessage(t *testing.T) {
	completer := generate.CompleterFunc(func(_ context.Context, prompt string) (string, error) {
		if !strings.Contains(prompt, "Acme Freight") {
			return "", errors.New("unexpected prompt")
		}
		return "Hi Acme team, quick note about your fleet.", nil
	})
	it := newPipeline(pages(nil), completer, Options{}).Process(context.Background(), model.ParseReference("acme.com"))

	assert.Equal(t, model.ItemStatusOK, it.Status)
	assert.Equal(t, model.MessageSourceLLM, it.Message.Source)
	assert.Empty(t, it.Reason)
}

func TestRun_LLMFailureStaysOK(t *testing.T) {
	completer := generate.CompleterFunc(func(context.Context, string) (string, error) {
		return "", errors.New("quota")
	})
	it := newPipeline(pages(nil), completer, Options{}).Process(context.Background(), model.ParseReference("acme.com"))

	assert.Equal(t, model.ItemStatusOK, it.Status)
	assert.Equal(t, model.MessageSourceTemplate, it.Message.Source)
	assert.Contains(t, it.Reason, "quota")
	assert.Contains(t, it.MessageBody(), "acme.com")
}

type panicClassifier struct{}

func (panicClassifier) Classify(model.ExtractedSignals) model.CompanyContext {
	panic("classifier exploded")
}

func TestRun_PanicRecoveredPerItem(t *testing.T) {
	v := vocab.Default()
	p := New(pages(map[string]model.FetchResult{
		"down.com": model.FetchUnreachable{Cause: "refused"},
	}), extract.New(v, extract.Options{}), panicClassifier{}, generate.New(v, nil, generate.Options{}), Options{})

	report := p.Run(context.Background(), model.ParseReferences([]string{"acme.com", "down.com"}))
	require.Len(t, report.Items, 2)
	assert.Equal(t, model.ItemStatusFailed, report.Items[0].Status)
	assert.Contains(t, report.Items[0].Reason, "classifier exploded")
	assert.Nil(t, report.Items[0].Message)
	assert.Equal(t, model.ItemStatusDegraded, report.Items[1].Status)
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, name string, cc model.CompanyContext, s model.ExtractedSignals) (model.OutreachMessage, error) {
	args := m.Called(ctx, name, cc, s)
	return args.Get(0).(model.OutreachMessage), args.Error(1)
}

func (m *mockGenerator) Fallback(name string, cc model.CompanyContext) (model.OutreachMessage, error) {
	args := m.Called(name, cc)
	return args.Get(0).(model.OutreachMessage), args.Error(1)
}

func TestProcess_GeneratorErrorIsFailed(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, "acme.com", mock.Anything, mock.Anything).
		Return(model.OutreachMessage{}, errors.New("no name"))

	v := vocab.Default()
	p := New(pages(nil), extract.New(v, extract.Options{}), classify.New(v), gen, Options{})
	it := p.Process(context.Background(), model.ParseReference("acme.com"))

	assert.Equal(t, model.ItemStatusFailed, it.Status)
	assert.Contains(t, it.Reason, "generation failed")
	assert.Nil(t, it.Message)
	require.NotNil(t, it.Context)
	assert.Equal(t, model.Category("Logistics"), it.Context.Category)
	gen.AssertExpectations(t)
}

func TestRun_CancellationKeepsFinishedItems(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	src := scrape.SourceFunc(func(_ context.Context, ref model.CompanyReference) model.FetchResult {
		if calls.Add(1) == 2 {
			cancel()
		}
		return model.FetchSuccess{URL: ref.URL(), Content: freightPage, StatusCode: 200}
	})

	refs := model.ParseReferences([]string{"a.com", "b.com", "c.com", "d.com"})
	report := newPipeline(src, nil, Options{}).Run(ctx, refs)

	assert.True(t, report.Cancelled)
	assert.Equal(t, int32(2), calls.Load())
	require.Len(t, report.Items, 2)
	assert.Equal(t, "a.com", report.Items[0].Input)
	assert.Equal(t, model.ItemStatusOK, report.Items[0].Status)
	assert.Equal(t, "b.com", report.Items[1].Input)
	assert.Equal(t, model.ItemStatusFailed, report.Items[1].Status)
	assert.Equal(t, ReasonCancelled, report.Items[1].Reason)
	assert.Nil(t, report.Items[1].Message)
}

func TestRun_ConcurrentCancellationStopsQueuedItems(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	release := make(chan struct{})
	var calls atomic.Int32
	src := scrape.SourceFunc(func(ctx context.Context, ref model.CompanyReference) model.FetchResult {
		calls.Add(1)
		switch ref.Input() {
		case "a.com":
			<-release
			return model.FetchSuccess{URL: ref.URL(), Content: freightPage, StatusCode: 200}
		case "b.com":
			cancel()
			close(release)
			return model.FetchUnreachable{URL: ref.URL(), Cause: "cancelled"}
		}
		return model.FetchSuccess{URL: ref.URL(), Content: freightPage, StatusCode: 200}
	})

	refs := model.ParseReferences([]string{"a.com", "b.com", "c.com", "d.com", "e.com"})
	report := newPipeline(src, nil, Options{Concurrency: 2}).Run(ctx, refs)

	assert.True(t, report.Cancelled)
	assert.Equal(t, int32(2), calls.Load(), "no fetch may start after cancellation")
	require.Len(t, report.Items, 2)
	for i, it := range report.Items {
		assert.Equal(t, i, it.Index)
		assert.Equal(t, model.ItemStatusFailed, it.Status)
		assert.Equal(t, ReasonCancelled, it.Reason)
		assert.Empty(t, it.FetchFailure)
	}
}

func TestRun_CancelDuringLastItemMarksReport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := scrape.SourceFunc(func(_ context.Context, ref model.CompanyReference) model.FetchResult {
		cancel()
		return model.FetchTimeout{URL: ref.URL(), After: time.Second}
	})
	report := newPipeline(src, nil, Options{}).Run(ctx, model.ParseReferences([]string{"acme.com"}))

	require.Len(t, report.Items, 1)
	assert.True(t, report.Cancelled)
	assert.Equal(t, ReasonCancelled, report.Items[0].Reason)
}

func TestRun_ConcurrentPreservesOrder(t *testing.T) {
	inputs := []string{"a.com", "b.com", "c.com", "d.com", "e.com", "f.com", "g.com", "h.com"}
	delays := map[string]time.Duration{"a.com": 40 * time.Millisecond, "c.com": 20 * time.Millisecond}

	var inFlight, peak atomic.Int32
	src := scrape.SourceFunc(func(_ context.Context, ref model.CompanyReference) model.FetchResult {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(delays[ref.Input()] + time.Millisecond)
		inFlight.Add(-1)
		return model.FetchSuccess{URL: ref.URL(), Content: freightPage, StatusCode: 200}
	})

	var mu sync.Mutex
	var progress []int
	report := newPipeline(src, nil, Options{
		Concurrency: 3,
		OnItem: func(done, total int, _ model.BatchItemResult) {
			mu.Lock()
			progress = append(progress, done)
			mu.Unlock()
			assert.Equal(t, len(inputs), total)
		},
	}).Run(context.Background(), model.ParseReferences(inputs))

	require.Len(t, report.Items, len(inputs))
	for i, it := range report.Items {
		assert.Equal(t, inputs[i], it.Input)
		assert.Equal(t, i, it.Index)
	}
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, progress)
}

func TestRun_Empty(t *testing.T) {
	report := newPipeline(pages(nil), nil, Options{}).Run(context.Background(), nil)
	assert.Empty(t, report.Items)
	assert.False(t, report.Cancelled)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))
}

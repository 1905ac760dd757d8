// Package pipeline runs company references through fetch, extract, classify
// and generate, isolating each item so that no single input can fail a batch.
package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/scrape"
)

// ReasonCancelled is the reason on items interrupted by cancellation.
const ReasonCancelled = "cancelled: batch interrupted"

// Extractor turns fetched content into signals.
type Extractor interface {
	Extract(content string) model.ExtractedSignals
}

// Classifier decides a company context from signals.
type Classifier interface {
	Classify(signals model.ExtractedSignals) model.CompanyContext
}

// Generator writes outreach messages.
type Generator interface {
	Generate(ctx context.Context, companyName string, cc model.CompanyContext, signals model.ExtractedSignals) (model.OutreachMessage, error)
	Fallback(companyName string, cc model.CompanyContext) (model.OutreachMessage, error)
}

// ProgressFunc observes each finished item. done counts finished items.
type ProgressFunc func(done, total int, item model.BatchItemResult)

// Options configures a Pipeline.
type Options struct {
	// Concurrency bounds in-flight items. Values below 2 run sequentially.
	Concurrency int
	OnItem      ProgressFunc
}

// Pipeline wires the stages together. It holds no per-batch state.
type Pipeline struct {
	fetcher    scrape.Source
	extractor  Extractor
	classifier Classifier
	generator  Generator
	opts       Options
}

// New creates a Pipeline.
func New(f scrape.Source, e Extractor, c Classifier, g Generator, opts Options) *Pipeline {
	return &Pipeline{
		fetcher:    f,
		extractor:  e,
		classifier: c,
		generator:  g,
		opts:       opts,
	}
}

// Run processes refs and returns a report with one item per started
// reference, in input order. Once ctx is done no further references are
// started; finished items are kept, items cut short carry ReasonCancelled,
// and the report is marked cancelled.
func (p *Pipeline) Run(ctx context.Context, refs []model.CompanyReference) *model.BatchReport {
	report := model.NewBatchReport(len(refs))
	log := zap.L().With(zap.String("batch_id", report.ID))
	log.Info("pipeline: batch starting",
		zap.Int("companies", len(refs)),
		zap.Int("concurrency", max(p.opts.Concurrency, 1)),
	)

	slots := make([]*model.BatchItemResult, len(refs))
	var (
		mu   sync.Mutex
		done int
	)
	finish := func(i int, item model.BatchItemResult) {
		item.Index = i
		mu.Lock()
		defer mu.Unlock()
		slots[i] = &item
		done++
		if p.opts.OnItem != nil {
			p.opts.OnItem(done, len(refs), item)
		}
	}

	if p.opts.Concurrency < 2 {
		for i, ref := range refs {
			if ctx.Err() != nil {
				break
			}
			finish(i, p.Process(ctx, ref))
		}
	} else {
		g := new(errgroup.Group)
		g.SetLimit(p.opts.Concurrency)
		for i, ref := range refs {
			if ctx.Err() != nil {
				break
			}
			// Go blocks while the group is full; the item may only start
			// after ctx is done.
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				finish(i, p.Process(ctx, ref))
				return nil
			})
		}
		_ = g.Wait()
	}

	for _, s := range slots {
		if s != nil {
			report.Append(*s)
		}
	}
	report.Cancelled = ctx.Err() != nil || done < len(refs)
	report.FinishedAt = time.Now().UTC()

	sum := report.Summary()
	log.Info("pipeline: batch complete",
		zap.Int("total", sum.Total),
		zap.Int("ok", sum.OK),
		zap.Int("degraded", sum.Degraded),
		zap.Int("failed", sum.Failed),
		zap.Bool("cancelled", report.Cancelled),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report
}

// Process runs one reference through every stage. It never panics and
// always returns a result; Index is left for the caller to set.
func (p *Pipeline) Process(ctx context.Context, ref model.CompanyReference) (item model.BatchItemResult) {
	start := time.Now()
	item = model.BatchItemResult{Input: ref.Input(), URL: ref.URL()}
	log := zap.L().With(zap.String("company", ref.Input()), zap.String("url", ref.URL()))

	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline: recovered panic",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			item.Message = nil
			item.Status = model.ItemStatusFailed
			item.Reason = fmt.Sprintf("internal error: %v", r)
		}
		item.Duration = time.Since(start)
		log.Info("pipeline: item done",
			zap.String("status", string(item.Status)),
			zap.String("category", string(item.Category())),
			zap.String("reason", item.Reason),
			zap.Duration("elapsed", item.Duration),
		)
	}()

	if !ref.Resolvable() {
		item.Status = model.ItemStatusFailed
		item.Reason = ref.Err().Error()
		return item
	}

	res := p.fetcher.Fetch(ctx, ref)
	if ok, isOK := res.(model.FetchSuccess); isOK {
		p.enrich(ctx, ref, ok, &item)
		return item
	}
	if ctx.Err() != nil {
		interrupted(&item)
		return item
	}
	if res == nil {
		res = model.FetchUnreachable{URL: ref.URL(), Cause: "no fetch result"}
	}
	p.degrade(ref, res, &item)
	return item
}

func (p *Pipeline) enrich(ctx context.Context, ref model.CompanyReference, res model.FetchSuccess, item *model.BatchItemResult) {
	item.URL = res.URL

	signals := p.extractor.Extract(res.Content)
	cc := p.classifier.Classify(signals)
	item.Context = &cc
	item.ContactEmail = signals.ContactEmail()
	if ctx.Err() != nil {
		interrupted(item)
		return
	}

	msg, err := p.generator.Generate(ctx, ref.Input(), cc, signals)
	if err != nil {
		item.Status = model.ItemStatusFailed
		item.Reason = "generation failed: " + err.Error()
		return
	}
	item.Message = &msg
	item.Status = model.ItemStatusOK
	if msg.Source == model.MessageSourceTemplate {
		item.Reason = msg.FallbackReason
	}
}

// interrupted marks an item cut short by batch cancellation, either during
// its fetch or before generation.
func interrupted(item *model.BatchItemResult) {
	item.Message = nil
	item.Status = model.ItemStatusFailed
	item.Reason = ReasonCancelled
}

// degrade handles Blocked, Unreachable and Timeout: the category is Unknown
// and the message comes from the template, keeping the fetch reason.
func (p *Pipeline) degrade(ref model.CompanyReference, res model.FetchResult, item *model.BatchItemResult) {
	cc := model.UnknownContext()
	item.Context = &cc
	item.FetchFailure = res.Reason()

	msg, err := p.generator.Fallback(ref.Input(), cc)
	if err != nil {
		item.Status = model.ItemStatusFailed
		item.Reason = "generation failed: " + err.Error()
		return
	}
	msg.FallbackReason = res.Reason()
	item.Message = &msg
	item.Status = model.ItemStatusDegraded
	item.Reason = res.Reason()
}

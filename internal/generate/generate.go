// Package generate writes outreach messages from a company's context,
// through a language model when one is available and a static template
// otherwise.
package generate

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/internal/vocab"
)

var (
	// ErrUnavailable means the completer could not be used for this message.
	// It never escapes Generate; the template is used instead.
	ErrUnavailable = eris.New("generation unavailable")
	// ErrEmptyCompanyName is returned when there is no name to address.
	ErrEmptyCompanyName = eris.New("company name is empty")
)

const (
	DefaultSender  = "LuSent AI Labs"
	DefaultOffer   = "AI automation services: lead generation, chatbots and workflow automation"
	DefaultTimeout = 30 * time.Second
	DefaultWords   = 150
)

// Options configures a Generator.
type Options struct {
	Sender  string
	Offer   string
	Timeout time.Duration
	// MaxWords is the length limit given to the model.
	MaxWords int
	// ContextChars bounds the website data included in prompts.
	ContextChars int
	// Breaker guards the completer. Nil gets a default breaker.
	Breaker *resilience.CircuitBreaker
}

// Generator produces OutreachMessages. It is safe for concurrent use.
type Generator struct {
	vocab     *vocab.Vocabulary
	completer Completer
	breaker   *resilience.CircuitBreaker
	opts      Options
}

// New creates a Generator. A nil completer makes every message a template.
func New(v *vocab.Vocabulary, c Completer, opts Options) *Generator {
	if v == nil {
		v = vocab.Default()
	}
	if opts.Sender == "" {
		opts.Sender = DefaultSender
	}
	if opts.Offer == "" {
		opts.Offer = DefaultOffer
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxWords <= 0 {
		opts.MaxWords = DefaultWords
	}
	if opts.ContextChars <= 0 {
		opts.ContextChars = 2000
	}
	breaker := opts.Breaker
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker(resilience.BreakerConfig{
			OnStateChange: func(from, to resilience.CircuitState) {
				zap.L().Warn("generate: circuit breaker state change",
					zap.Stringer("from", from), zap.Stringer("to", to))
			},
		})
	}
	return &Generator{vocab: v, completer: c, breaker: breaker, opts: opts}
}

// Generate writes a message for companyName. Completer failures, empty
// completions and an open breaker all fall back to the template, with the
// cause recorded in FallbackReason. The only error is an empty name.
func (g *Generator) Generate(ctx context.Context, companyName string, cc model.CompanyContext, signals model.ExtractedSignals) (model.OutreachMessage, error) {
	name := strings.TrimSpace(companyName)
	if name == "" {
		return model.OutreachMessage{}, ErrEmptyCompanyName
	}
	cc = normalize(cc)

	if g.completer == nil {
		return g.template(name, cc, eris.Wrap(ErrUnavailable, "no completer configured")), nil
	}

	prompt := g.Prompt(name, cc, signals)
	body, err := resilience.ExecuteVal(ctx, g.breaker, func(ctx context.Context) (string, error) {
		cctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()

		text, err := g.completer.Complete(cctx, prompt)
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return "", eris.New("empty completion")
		}
		return text, nil
	})
	if err != nil {
		zap.L().Warn("generate: using template",
			zap.String("company", name),
			zap.String("category", string(cc.Category)),
			zap.Error(err),
		)
		return g.template(name, cc, eris.Wrap(ErrUnavailable, err.Error())), nil
	}

	return model.OutreachMessage{
		CompanyName: name,
		Category:    cc.Category,
		Body:        body,
		Source:      model.MessageSourceLLM,
	}, nil
}

// Fallback writes the template message without calling the completer.
func (g *Generator) Fallback(companyName string, cc model.CompanyContext) (model.OutreachMessage, error) {
	name := strings.TrimSpace(companyName)
	if name == "" {
		return model.OutreachMessage{}, ErrEmptyCompanyName
	}
	return g.template(name, normalize(cc), nil), nil
}

// BreakerState reports the completer circuit state.
func (g *Generator) BreakerState() resilience.CircuitState { return g.breaker.State() }

func (g *Generator) template(name string, cc model.CompanyContext, cause error) model.OutreachMessage {
	msg := model.OutreachMessage{
		CompanyName: name,
		Category:    cc.Category,
		Body:        g.Template(name, cc),
		Source:      model.MessageSourceTemplate,
	}
	if cause != nil {
		msg.FallbackReason = cause.Error()
	}
	return msg
}

func normalize(cc model.CompanyContext) model.CompanyContext {
	if cc.Category == "" {
		cc.Category = model.CategoryUnknown
	}
	return cc
}

package main

import (
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/outreach-cli/internal/classify"
	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/extract"
	"github.com/sells-group/outreach-cli/internal/generate"
	"github.com/sells-group/outreach-cli/internal/pipeline"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/internal/scrape"
	"github.com/sells-group/outreach-cli/internal/vocab"
	anthropicpkg "github.com/sells-group/outreach-cli/pkg/anthropic"
	"github.com/sells-group/outreach-cli/pkg/chat"
)

// pipelineEnv holds the stages built from config, shared by pitch and batch.
type pipelineEnv struct {
	Vocab     *vocab.Vocabulary
	Fetcher   *scrape.Fetcher
	Generator *generate.Generator
	Pipeline  *pipeline.Pipeline
}

// initPipeline builds every stage from c. With offline set no language
// model is configured and all messages come from the template.
func initPipeline(c *config.Config, offline bool, opts pipeline.Options) (*pipelineEnv, error) {
	v, err := loadVocabulary(c.Classify)
	if err != nil {
		return nil, err
	}

	completer, err := initCompleter(c, offline)
	if err != nil {
		return nil, err
	}

	fetcher := scrape.NewFetcher(scrape.Options{
		Timeout:      c.Fetch.Timeout(),
		UserAgent:    c.Fetch.UserAgent,
		MaxBodyBytes: int64(c.Fetch.MaxBodyKB) * 1024,
		Retries:      c.Fetch.Retries,
		Limiter:      newLimiter(c.Fetch.RequestsPerSecond),
	})

	gen := generate.New(v, completer, generate.Options{
		Sender:   c.Generate.Sender,
		Offer:    c.Generate.Offer,
		Timeout:  c.Generate.Timeout(),
		MaxWords: c.Generate.MaxWords,
		Breaker: resilience.NewCircuitBreaker(resilience.BreakerConfig{
			FailureThreshold: c.Generate.BreakerThreshold,
			ResetTimeout:     time.Duration(c.Generate.BreakerResetSecs) * time.Second,
			OnStateChange: func(from, to resilience.CircuitState) {
				zap.L().Warn("generate: circuit breaker state change",
					zap.Stringer("from", from), zap.Stringer("to", to))
			},
		}),
	})

	p := pipeline.New(
		fetcher,
		extract.New(v, extract.Options{ExcerptChars: c.Batch.ExcerptChars}),
		classify.New(v),
		gen,
		opts,
	)

	return &pipelineEnv{Vocab: v, Fetcher: fetcher, Generator: gen, Pipeline: p}, nil
}

func loadVocabulary(c config.ClassifyConfig) (*vocab.Vocabulary, error) {
	if c.VocabularyPath == "" {
		return vocab.Default(), nil
	}
	v, err := vocab.Load(c.VocabularyPath)
	if err != nil {
		return nil, eris.Wrapf(err, "load vocabulary %s", c.VocabularyPath)
	}
	zap.L().Info("loaded vocabulary",
		zap.String("path", c.VocabularyPath),
		zap.Int("categories", len(v.Categories())),
	)
	return v, nil
}

// initCompleter picks the language model provider. A missing key is an
// error rather than a silent downgrade to templates.
func initCompleter(c *config.Config, offline bool) (generate.Completer, error) {
	provider := c.Generate.Provider
	if offline {
		provider = config.ProviderOffline
	}

	switch provider {
	case config.ProviderOffline:
		zap.L().Info("generation offline, using template messages")
		return nil, nil
	case config.ProviderAnthropic:
		if c.Anthropic.Key == "" {
			return nil, eris.New("anthropic.key is required (set OUTREACH_ANTHROPIC_KEY or use --offline)")
		}
		return generate.AnthropicCompleter{
			Client:    anthropicpkg.NewClient(c.Anthropic.Key),
			Model:     c.Anthropic.Model,
			MaxTokens: int64(c.Generate.MaxTokens),
		}, nil
	case config.ProviderChat:
		if c.Chat.Key == "" {
			return nil, eris.New("chat.key is required (set OUTREACH_CHAT_KEY or use --offline)")
		}
		return generate.ChatCompleter{
			Client:    chat.NewClient(c.Chat.Key, chat.WithBaseURL(c.Chat.BaseURL), chat.WithModel(c.Chat.Model)),
			Model:     c.Chat.Model,
			MaxTokens: c.Generate.MaxTokens,
		}, nil
	default:
		return nil, eris.Errorf("unknown generate.provider %q", provider)
	}
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

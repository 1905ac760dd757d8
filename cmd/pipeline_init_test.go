package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/generate"
	"github.com/sells-group/outreach-cli/internal/pipeline"
	"github.com/sells-group/outreach-cli/internal/resilience"
)

func testConfig() *config.Config {
	return &config.Config{
		Fetch: config.FetchConfig{TimeoutSecs: 10, MaxBodyKB: 1024, RequestsPerSecond: 2, Retries: 1},
		Generate: config.GenerateConfig{
			Provider:         config.ProviderAnthropic,
			TimeoutSecs:      30,
			MaxTokens:        600,
			MaxWords:         150,
			BreakerThreshold: 3,
			BreakerResetSecs: 60,
		},
		Anthropic: config.AnthropicConfig{Model: "claude-haiku-4-5-20251001"},
		Chat:      config.ChatConfig{BaseURL: "https://api.openai.com/v1", Model: "gpt-4o-mini"},
		Batch:     config.BatchConfig{MaxConcurrent: 1, ExcerptChars: 4000},
	}
}

func TestInitPipeline_Offline(t *testing.T) {
	env, err := initPipeline(testConfig(), true, pipeline.Options{})
	require.NoError(t, err)
	require.NotNil(t, env.Pipeline)
	assert.Equal(t, resilience.CircuitClosed, env.Generator.BreakerState())
	assert.NotEmpty(t, env.Vocab.Categories())
}

func TestInitPipeline_MissingKeys(t *testing.T) {
	c := testConfig()
	_, err := initPipeline(c, false, pipeline.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")

	c.Generate.Provider = config.ProviderChat
	_, err = initPipeline(c, false, pipeline.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat.key is required")
}

func TestInitCompleter_Providers(t *testing.T) {
	c := testConfig()
	c.Anthropic.Key = "sk-ant-test"
	c.Chat.Key = "sk-chat-test"

	comp, err := initCompleter(c, false)
	require.NoError(t, err)
	ac, ok := comp.(generate.AnthropicCompleter)
	require.True(t, ok)
	assert.Equal(t, "claude-haiku-4-5-20251001", ac.Model)
	assert.Equal(t, int64(600), ac.MaxTokens)

	c.Generate.Provider = config.ProviderChat
	comp, err = initCompleter(c, false)
	require.NoError(t, err)
	cc, ok := comp.(generate.ChatCompleter)
	require.True(t, ok)
	assert.Equal(t, "gpt-4o-mini", cc.Model)

	comp, err = initCompleter(c, true)
	require.NoError(t, err)
	assert.Nil(t, comp)

	c.Generate.Provider = "gemini"
	_, err = initCompleter(c, false)
	assert.Error(t, err)
}

func TestInitPipeline_CustomVocabulary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.yaml")
	doc := `fallback_angle: manual prospecting
categories:
  - category: Robotics
    angle: integration costs
    keywords: [robot, actuator]
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	c := testConfig()
	c.Classify.VocabularyPath = path
	env, err := initPipeline(c, true, pipeline.Options{})
	require.NoError(t, err)
	assert.True(t, env.Vocab.Has("Robotics"))

	c.Classify.VocabularyPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = initPipeline(c, true, pipeline.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load vocabulary")
}

func TestNewLimiter(t *testing.T) {
	assert.Nil(t, newLimiter(0))
	l := newLimiter(4)
	require.NotNil(t, l)
	assert.InDelta(t, 4.0, float64(l.Limit()), 0.001)
}

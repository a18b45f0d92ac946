package config

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("USE_AI", "")
	t.Setenv("USE_ENSEMBLE", "")
	t.Setenv("ANALYZERS", "")
	t.Setenv("LOG_LEVEL", "")

	cfg := Load(quietLogger())

	// USE_AI defaults on but is disabled without a key.
	assert.False(t, cfg.UseAI)
	assert.False(t, cfg.UseEnsemble)
	assert.Empty(t, cfg.Analyzers)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
}

func TestLoadWithKey(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "test-key")
	t.Setenv("USE_AI", "true")
	t.Setenv("USE_ENSEMBLE", "true")
	t.Setenv("LLM_MODEL", "llama-3.3-70b-versatile")

	cfg := Load(quietLogger())

	assert.True(t, cfg.UseAI)
	assert.True(t, cfg.UseEnsemble)
	assert.Equal(t, "test-key", cfg.GroqAPIKey)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.LLMModel)
}

func TestUseAIExplicitlyDisabled(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "test-key")
	t.Setenv("USE_AI", "false")

	cfg := Load(quietLogger())
	assert.False(t, cfg.UseAI)
}

func TestAnalyzerRestriction(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("ANALYZERS", "Sentiment, topics ,activity")

	cfg := Load(quietLogger())

	assert.Equal(t, []string{"sentiment", "topics", "activity"}, cfg.Analyzers)
	assert.True(t, cfg.AnalyzerEnabled("sentiment"))
	assert.True(t, cfg.AnalyzerEnabled("activity"))
	assert.False(t, cfg.AnalyzerEnabled("network"))
}

func TestAnalyzerEnabledDefaultsToAll(t *testing.T) {
	cfg := &Config{}
	assert.True(t, cfg.AnalyzerEnabled("sentiment"))
	assert.True(t, cfg.AnalyzerEnabled("network"))
}

func TestLogLevelParsing(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("LOG_LEVEL", "debug")
	assert.Equal(t, logrus.DebugLevel, Load(quietLogger()).LogLevel)

	t.Setenv("LOG_LEVEL", "bogus")
	assert.Equal(t, logrus.InfoLevel, Load(quietLogger()).LogLevel)
}

func TestBoolEnv(t *testing.T) {
	t.Setenv("SOME_FLAG", "yes")
	assert.True(t, boolEnv("SOME_FLAG", false))

	t.Setenv("SOME_FLAG", "off")
	assert.False(t, boolEnv("SOME_FLAG", true))

	t.Setenv("SOME_FLAG", "")
	assert.True(t, boolEnv("SOME_FLAG", true))
}

// Package config loads the application configuration from environment
// variables, with optional .env file support.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds the analytics configuration. Values are read once at load
// time and never mutated afterwards.
type Config struct {
	// Remote backend
	GroqAPIKey string
	LLMModel   string

	// Analysis toggles
	UseAI       bool
	UseEnsemble bool

	// Analyzers restricts which analyzers run. Empty means all.
	Analyzers []string

	// Logging
	LogLevel logrus.Level
}

// Load reads configuration from the environment. A missing .env file is not
// an error; explicit environment variables always win.
func Load(logger *logrus.Logger) *Config {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file loaded, using environment only")
	}

	cfg := &Config{
		GroqAPIKey:  os.Getenv("GROQ_API_KEY"),
		LLMModel:    os.Getenv("LLM_MODEL"),
		UseAI:       boolEnv("USE_AI", true),
		UseEnsemble: boolEnv("USE_ENSEMBLE", false),
		LogLevel:    logrus.InfoLevel,
	}

	if cfg.GroqAPIKey == "" && cfg.UseAI {
		logger.Info("No GROQ_API_KEY set, remote analysis disabled")
		cfg.UseAI = false
	}

	if analyzers := os.Getenv("ANALYZERS"); analyzers != "" {
		for _, name := range strings.Split(analyzers, ",") {
			name = strings.TrimSpace(strings.ToLower(name))
			if name != "" {
				cfg.Analyzers = append(cfg.Analyzers, name)
			}
		}
	}

	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		level, err := logrus.ParseLevel(levelStr)
		if err != nil {
			logger.WithField("log_level", levelStr).Warn("Invalid LOG_LEVEL, using info")
		} else {
			cfg.LogLevel = level
		}
	}

	return cfg
}

// AnalyzerEnabled reports whether the named analyzer should run. An empty
// restriction list enables everything.
func (c *Config) AnalyzerEnabled(name string) bool {
	if len(c.Analyzers) == 0 {
		return true
	}
	for _, a := range c.Analyzers {
		if a == name {
			return true
		}
	}
	return false
}

func boolEnv(key string, def bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "":
		return def
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

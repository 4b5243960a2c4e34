// Package app assembles the completion client, classifier and runner from
// configuration. Both entry points share it.
package app

import (
	"fmt"
	"log/slog"

	"github.com/dgallion1/clausecheck/internal/classify"
	"github.com/dgallion1/clausecheck/internal/completion"
	"github.com/dgallion1/clausecheck/internal/config"
	"github.com/dgallion1/clausecheck/internal/metrics"
	"github.com/dgallion1/clausecheck/internal/pipeline"
)

type App struct {
	Client   completion.Client
	Stats    *completion.Stats
	Metrics  *metrics.Metrics
	Runner   *pipeline.Runner
	Settings pipeline.Settings
}

// New builds the provider client from cfg and wraps it with latency stats
// and, when enabled, the circuit breaker.
func New(cfg config.Config, log *slog.Logger) (*App, error) {
	client, err := completion.New(completion.Config{
		Provider:        cfg.LLMProvider,
		Model:           cfg.LLMModel,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		OpenAIBaseURL:   cfg.OpenAIBaseURL,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		Timeout:         cfg.LLMTimeout,
	})
	if err != nil {
		return nil, err
	}
	return NewWithClient(cfg, client, log)
}

// NewWithClient is New with an already constructed client.
func NewWithClient(cfg config.Config, client completion.Client, log *slog.Logger) (*App, error) {
	settings, err := pipeline.SettingsFromConfig(cfg.Analysis)
	if err != nil {
		return nil, fmt.Errorf("analysis settings: %w", err)
	}

	stats := completion.NewStats(cfg.StatsWindow)
	var completer completion.Completer = completion.NewTimed(client, stats)
	if cfg.Breaker.Enabled {
		completer = completion.NewBreaker(completer, completion.BreakerConfig{
			MinRequests:      cfg.Breaker.MinRequests,
			FailureRatio:     cfg.Breaker.FailureRatio,
			OpenTimeout:      cfg.Breaker.OpenTimeout,
			HalfOpenMaxCalls: cfg.Breaker.HalfOpenMaxCalls,
		}, log)
	}

	m := metrics.New()
	classifier := classify.NewClassifier(completer, client.Model(), log, m)

	log.Info("completion client ready",
		"provider", cfg.LLMProvider, "model", client.Model(), "breaker", cfg.Breaker.Enabled)

	return &App{
		Client:   client,
		Stats:    stats,
		Metrics:  m,
		Runner:   pipeline.NewRunner(classifier, log),
		Settings: settings,
	}, nil
}

// Close releases the provider client.
func (a *App) Close() {
	a.Client.Close()
}

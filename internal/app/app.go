// Package app builds the service's object graph from configuration. The HTTP
// server and the command-line tool share it.
package app

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-rank-service/internal/config"
	"github.com/helixir/paper-rank-service/internal/dedup"
	"github.com/helixir/paper-rank-service/internal/llm"
	"github.com/helixir/paper-rank-service/internal/observability"
	"github.com/helixir/paper-rank-service/internal/papersources"
	"github.com/helixir/paper-rank-service/internal/papersources/arxiv"
	"github.com/helixir/paper-rank-service/internal/papersources/crossref"
	"github.com/helixir/paper-rank-service/internal/papersources/pubmed"
	"github.com/helixir/paper-rank-service/internal/papersources/scholar"
	"github.com/helixir/paper-rank-service/internal/papersources/semanticscholar"
	"github.com/helixir/paper-rank-service/internal/ranking"
)

// Components are the long-lived services of one process.
type Components struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Metrics   *observability.Metrics
	Registry  *papersources.Registry
	Merger    *dedup.Merger
	Ranker    *ranking.Ranker
	Assistant *llm.Assistant
}

// New builds all components. metrics may be nil, for instance in the CLI
// where nothing scrapes them.
func New(cfg *config.Config, logger zerolog.Logger, metrics *observability.Metrics) (*Components, error) {
	assistant, err := NewAssistant(cfg.LLM, logger, metrics)
	if err != nil {
		return nil, err
	}

	return &Components{
		Config:   cfg,
		Logger:   logger,
		Metrics:  metrics,
		Registry: NewRegistry(cfg, logger, metrics),
		Merger: dedup.NewMerger(dedup.MergerConfig{
			AuthorThreshold: cfg.Search.AuthorThreshold,
			Logger:          logger,
			Metrics:         metrics,
		}),
		Ranker:    ranking.NewRanker(logger, metrics),
		Assistant: assistant,
	}, nil
}

// NewLogger creates the process logger from the logging section.
func NewLogger(cfg config.LoggingConfig) zerolog.Logger {
	return observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Level,
		Format:     cfg.Format,
		Output:     cfg.Output,
		AddSource:  cfg.AddSource,
		TimeFormat: cfg.TimeFormat,
	})
}

// NewRegistry registers every paper source. Disabled sources are registered
// too so they can report themselves as disabled.
func NewRegistry(cfg *config.Config, logger zerolog.Logger, metrics *observability.Metrics) *papersources.Registry {
	ps := cfg.PaperSources
	registry := papersources.NewRegistry(papersources.RegistryConfig{
		MaxConcurrency: cfg.Search.MaxConcurrency,
		Logger:         logger,
		Metrics:        metrics,
	})

	registry.Register(pubmed.New(pubmed.Config{
		BaseURL:    ps.PubMed.BaseURL,
		APIKey:     ps.PubMed.APIKey,
		Timeout:    ps.PubMed.Timeout,
		RateLimit:  ps.PubMed.RateLimit,
		MaxResults: ps.PubMed.MaxResults,
		Enabled:    ps.PubMed.Enabled,
		Metrics:    metrics,
	}))
	registry.Register(arxiv.New(arxiv.Config{
		BaseURL:    ps.ArXiv.BaseURL,
		Timeout:    ps.ArXiv.Timeout,
		RateLimit:  ps.ArXiv.RateLimit,
		MaxResults: ps.ArXiv.MaxResults,
		Enabled:    ps.ArXiv.Enabled,
		Metrics:    metrics,
	}))
	registry.Register(semanticscholar.NewClient(semanticscholar.Config{
		BaseURL:    ps.SemanticScholar.BaseURL,
		APIKey:     ps.SemanticScholar.APIKey,
		Timeout:    ps.SemanticScholar.Timeout,
		RateLimit:  ps.SemanticScholar.RateLimit,
		MaxResults: ps.SemanticScholar.MaxResults,
		Enabled:    ps.SemanticScholar.Enabled,
		Metrics:    metrics,
	}, nil))
	registry.Register(crossref.New(crossref.Config{
		BaseURL:    ps.CrossRef.BaseURL,
		Email:      ps.ContactEmail,
		Timeout:    ps.CrossRef.Timeout,
		RateLimit:  ps.CrossRef.RateLimit,
		MaxResults: ps.CrossRef.MaxResults,
		Enabled:    ps.CrossRef.Enabled,
		Metrics:    metrics,
	}))
	registry.Register(scholar.New(scholar.Config{
		BaseURL:    ps.Scholar.BaseURL,
		Timeout:    ps.Scholar.Timeout,
		RateLimit:  ps.Scholar.RateLimit,
		MaxResults: ps.Scholar.MaxResults,
		Enabled:    ps.Scholar.Enabled,
		Proxies:    ps.Scholar.Proxies,
		Metrics:    metrics,
	}))

	return registry
}

// NewAssistant creates the language-model assistant for the configured
// provider.
func NewAssistant(cfg config.LLMConfig, logger zerolog.Logger, metrics *observability.Metrics) (*llm.Assistant, error) {
	client, err := llm.NewChatClient(llm.FactoryConfig{
		Provider:    cfg.Provider,
		Model:       cfg.Model,
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout,
		MaxRetries:  cfg.MaxRetries,
		RetryDelay:  cfg.RetryDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("create LLM client: %w", err)
	}
	return llm.NewAssistant(client, logger, metrics), nil
}

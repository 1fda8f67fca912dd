package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/claimlens/internal/cache"
	"github.com/ppiankov/claimlens/internal/fetch"
	"github.com/ppiankov/claimlens/internal/gather"
	"github.com/ppiankov/claimlens/internal/judge"
	"github.com/ppiankov/claimlens/internal/llm"
	"github.com/ppiankov/claimlens/internal/logging"
	"github.com/ppiankov/claimlens/internal/model"
	"github.com/ppiankov/claimlens/internal/pipeline"
	"github.com/ppiankov/claimlens/internal/search"
	"github.com/ppiankov/claimlens/internal/sources"
	"github.com/ppiankov/claimlens/internal/store"
	"github.com/ppiankov/claimlens/internal/worker"
)

// app holds the wired pipeline for one command invocation
type app struct {
	cfg          *model.Config
	orchestrator *pipeline.Orchestrator
	store        *store.Store
	provider     llm.Provider
	fetcher      *fetch.Fetcher
	searcher     search.Searcher
}

// newApp wires search, fetch, judgment and persistence from cfg
func newApp(ctx context.Context, cfg *model.Config) (*app, error) {
	log := logging.Component("cli")

	// 1. Reputable sources
	if cfg.Sources.File != "" {
		domains, err := sources.LoadFile(cache.ExpandHome(cfg.Sources.File))
		if err != nil {
			return nil, err
		}
		cfg.Sources.ReputableDomains = domains
	}
	classifier := sources.NewClassifier(cfg.Sources)

	// 2. Search and fetch
	searcher, err := search.New(cfg.Search, cfg.HTTP.Timeout, cfg.HTTP.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("create searcher: %w", err)
	}
	fetcher := fetch.NewFetcher(cfg.HTTP,
		fetch.WithCache(cache.New(cfg.Cache), cfg.Cache.DiskTTL),
		fetch.WithLimiter(worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)),
		fetch.WithLogger(logging.Component("fetch")),
	)
	gatherer := gather.NewGatherer(searcher, fetcher, classifier, gather.Options{
		Workers:      cfg.Concurrency.FetchWorkers,
		MinTextChars: cfg.Search.MinTextChars,
	}, logging.Component("gather"))

	// 3. Judgment oracle
	llmCfg := llm.ConfigFromModel(cfg.LLM, cfg.HTTP)
	llmCfg.APIKey = llm.ResolveAPIKey(strings.ToLower(llmCfg.Provider), llmCfg.APIKey)
	if strings.EqualFold(llmCfg.Provider, "ollama") && llmCfg.BaseURL == "" {
		llmCfg.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
	provider, err := llm.NewProvider(ctx, llmCfg)
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}
	j := judge.New(judge.NewLLMOracle(provider, cfg.Judge.MaxEvidenceChars), cfg.Judge, logging.Component("judge"))

	a := &app{cfg: cfg, provider: provider, fetcher: fetcher, searcher: searcher}
	opts := []pipeline.Option{pipeline.WithLogger(logging.Component("pipeline"))}

	// 4. Persistence
	if cfg.Store.Enabled {
		st, err := store.Open(cache.ExpandHome(cfg.Store.Path))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.store = st
		opts = append(opts, pipeline.WithRepository(st))
	}

	a.orchestrator = pipeline.NewOrchestrator(gatherer, j, cfg, opts...)

	log.WithFields(logrus.Fields{
		"search": searcher.Name(),
		"llm":    provider.Name(),
		"store":  cfg.Store.Enabled,
	}).Debug("pipeline ready")
	return a, nil
}

// Close releases the store and provider
func (a *app) Close() {
	if a.store != nil {
		_ = a.store.Close()
	}
	if c, ok := a.provider.(io.Closer); ok {
		_ = c.Close()
	}
}
